package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/logger"
)

type seedFile struct {
	Users []struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		Username  string `json:"username"`
		FullName  string `json:"fullName"`
		AvatarURL string `json:"avatarUrl"`
	} `json:"users"`
	Accounts []struct {
		UserID   string           `json:"userId"`
		Balance  string           `json:"balance"`
		Holdings map[string]int64 `json:"holdings"`
	} `json:"accounts"`
	Athletes []struct {
		Name  string `json:"name"`
		Team  string `json:"team"`
		Sport string `json:"sport"`
		Price string `json:"price"`
	} `json:"athletes"`
}

// Seed loads users, accounts and the athlete catalog from a JSON file. It
// is meant for local development against the embedded store.
func Seed(ctx context.Context, path string, users repository.UserRepository, accounts repository.AccountRepository, athletes repository.AthleteCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, u := range seed.Users {
		user := &entity.User{
			ID:        u.ID,
			Email:     u.Email,
			Username:  u.Username,
			FullName:  u.FullName,
			AvatarURL: u.AvatarURL,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}

	for _, a := range seed.Accounts {
		balance, err := entity.ParseMoney(a.Balance)
		if err != nil {
			return fmt.Errorf("seed account %s: balance %q: %w", a.UserID, a.Balance, err)
		}
		account := &entity.Account{UserID: a.UserID, Balance: balance, Holdings: a.Holdings}
		if account.Holdings == nil {
			account.Holdings = map[string]int64{}
		}
		if err := accounts.Save(ctx, account); err != nil {
			return fmt.Errorf("seed account %s: %w", a.UserID, err)
		}
	}

	for _, a := range seed.Athletes {
		price, err := entity.ParseMoney(a.Price)
		if err != nil {
			return fmt.Errorf("seed athlete %s: price %q: %w", a.Name, a.Price, err)
		}
		athlete := &entity.Athlete{Name: a.Name, Team: a.Team, Sport: a.Sport, CurrentPrice: price}
		if err := athletes.Upsert(ctx, athlete); err != nil {
			return fmt.Errorf("seed athlete %s: %w", a.Name, err)
		}
	}

	logger.Info("Seeded %d users, %d accounts, %d athletes from %s",
		len(seed.Users), len(seed.Accounts), len(seed.Athletes), path)
	return nil
}
