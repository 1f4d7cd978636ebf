// Package seed loads demo accounts and campaigns from YAML fixtures.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/unclebandit/collabhub-backend/internal/app"
	"github.com/unclebandit/collabhub-backend/internal/auth"
	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/model"
)

type Fixtures struct {
	Accounts  []Account  `yaml:"accounts"`
	Campaigns []Campaign `yaml:"campaigns"`
}

type Account struct {
	Key         string               `yaml:"key"`
	Role        model.Role           `yaml:"role"`
	DisplayName string               `yaml:"display_name"`
	Email       string               `yaml:"email"`
	Tokens      int64                `yaml:"tokens"`
	Profile     *model.ProfileFields `yaml:"profile"`
}

type Campaign struct {
	Owner        string   `yaml:"owner"`
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Niche        string   `yaml:"niche"`
	Budget       int64    `yaml:"budget"`
	Platforms    []string `yaml:"platforms"`
	Requirements string   `yaml:"requirements"`
	Deliverables string   `yaml:"deliverables"`
	TokenCost    int64    `yaml:"token_cost"`
	Status       string   `yaml:"status"`
}

// Summary counts what a run created; existing rows are skipped.
type Summary struct {
	Accounts  int
	Campaigns int
	Skipped   int
}

func Load(path string) (*Fixtures, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(content)
}

func Parse(content []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	keys := map[string]bool{}
	for i, a := range f.Accounts {
		if a.Key == "" {
			return nil, fmt.Errorf("account %d: key is required", i)
		}
		if keys[a.Key] {
			return nil, fmt.Errorf("account %d: duplicate key %q", i, a.Key)
		}
		keys[a.Key] = true
	}
	for i, c := range f.Campaigns {
		if !keys[c.Owner] {
			return nil, fmt.Errorf("campaign %d: unknown owner %q", i, c.Owner)
		}
	}
	return &f, nil
}

// Apply creates the fixtures through the services, so every invariant that
// holds for API traffic holds for seeded data. Re-running is safe: accounts
// are matched by email, grants by reference and campaigns by owner and title.
func Apply(ctx context.Context, a *app.App, f *Fixtures, log logrus.FieldLogger) (Summary, error) {
	var sum Summary
	ids := make(map[string]string, len(f.Accounts))

	for _, fa := range f.Accounts {
		id, created, err := ensureAccount(ctx, a, fa)
		if err != nil {
			return sum, fmt.Errorf("account %s: %w", fa.Key, err)
		}
		ids[fa.Key] = id
		if created {
			sum.Accounts++
		} else {
			sum.Skipped++
		}

		if fa.Tokens > 0 {
			if _, err := a.Ledger.Grant(ctx, auth.System, id, fa.Tokens, "seed:"+strings.ToLower(fa.Email)); err != nil {
				return sum, fmt.Errorf("grant %s: %w", fa.Key, err)
			}
		}
		if fa.Profile != nil {
			if _, err := a.Profiles.UpsertProfile(ctx, auth.System, id, *fa.Profile); err != nil {
				return sum, fmt.Errorf("profile %s: %w", fa.Key, err)
			}
		}
		log.WithFields(logrus.Fields{"key": fa.Key, "account_id": id}).Info("Seeded account")
	}

	for _, fc := range f.Campaigns {
		ownerID := ids[fc.Owner]
		existing, err := a.Store.Campaigns().ListByOwner(ctx, ownerID)
		if err != nil {
			return sum, err
		}
		if hasTitle(existing, fc.Title) {
			sum.Skipped++
			continue
		}

		fields := model.CampaignFields{
			Title:        &fc.Title,
			Description:  &fc.Description,
			Niche:        &fc.Niche,
			Budget:       &fc.Budget,
			Platforms:    fc.Platforms,
			Requirements: &fc.Requirements,
			Deliverables: &fc.Deliverables,
			TokenCost:    &fc.TokenCost,
		}
		c, err := a.Campaigns.CreateCampaign(ctx, auth.System, ownerID, fields)
		if err != nil {
			return sum, fmt.Errorf("campaign %q: %w", fc.Title, err)
		}
		if fc.Status != "" && fc.Status != string(model.CampaignActive) {
			if _, err := a.Campaigns.SetCampaignStatus(ctx, auth.System, c.ID, fc.Status); err != nil {
				return sum, fmt.Errorf("campaign %q status: %w", fc.Title, err)
			}
		}
		sum.Campaigns++
		log.WithField("campaign_id", c.ID).Info("Seeded campaign")
	}
	return sum, nil
}

func ensureAccount(ctx context.Context, a *app.App, fa Account) (string, bool, error) {
	existing, err := a.Store.Accounts().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(fa.Email)))
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		if existing.Role != fa.Role {
			return "", false, appErrors.InvalidInput(fmt.Sprintf("%s already exists as %s", fa.Email, existing.Role))
		}
		return existing.ID, false, nil
	}

	if fa.Role == model.RoleAdmin {
		acc, err := a.Accounts.CreateAdmin(ctx, fa.DisplayName, fa.Email)
		if err != nil {
			return "", false, err
		}
		return acc.ID, true, nil
	}
	reg, err := a.Accounts.Register(ctx, fa.Role, fa.DisplayName, fa.Email)
	if err != nil {
		return "", false, err
	}
	return reg.Account.ID, true, nil
}

func hasTitle(list []*model.Campaign, title string) bool {
	for _, c := range list {
		if c.Title == title {
			return true
		}
	}
	return false
}
