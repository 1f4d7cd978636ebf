// Package memory is an in-process repository.Store. A transaction holds the
// store lock, works on a copy of the data and publishes it only on success,
// so a failed fn leaves nothing behind.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/repository"
)

var errNegativeBalance = errors.New("token balance cannot be negative")

type state struct {
	accounts     map[string]*model.Account
	campaigns    map[string]*model.Campaign
	applications map[string]*model.Application
	balances     map[string]int64
	entries      []*model.LedgerEntry
	profiles     map[string]*model.Profile
	seq          map[string]int64
	next         int64
}

func newState() *state {
	return &state{
		accounts:     map[string]*model.Account{},
		campaigns:    map[string]*model.Campaign{},
		applications: map[string]*model.Application{},
		balances:     map[string]int64{},
		profiles:     map[string]*model.Profile{},
		seq:          map[string]int64{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.accounts {
		a := *v
		out.accounts[k] = &a
	}
	for k, v := range s.campaigns {
		out.campaigns[k] = v.Clone()
	}
	for k, v := range s.applications {
		out.applications[k] = v.Clone()
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	// entries are immutable once appended
	out.entries = append([]*model.LedgerEntry(nil), s.entries...)
	for k, v := range s.profiles {
		out.profiles[k] = v.Clone()
	}
	for k, v := range s.seq {
		out.seq[k] = v
	}
	out.next = s.next
	return out
}

// order hands out a monotonically increasing insertion number for tie-breaks.
func (s *state) order(id string) int64 {
	s.next++
	s.seq[id] = s.next
	return s.next
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(repos{tx: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Accounts() repository.AccountRepositoryInterface {
	return &accounts{repos{store: s}}
}

func (s *Store) Campaigns() repository.CampaignRepositoryInterface {
	return &campaigns{repos{store: s}}
}

func (s *Store) Applications() repository.ApplicationRepositoryInterface {
	return &applications{repos{store: s}}
}

func (s *Store) Ledger() repository.LedgerRepositoryInterface {
	return &ledger{repos{store: s}}
}

func (s *Store) Profiles() repository.ProfileRepositoryInterface {
	return &profiles{repos{store: s}}
}

// repos binds to either the live state (store set) or a transaction copy (tx set).
type repos struct {
	store *Store
	tx    *state
}

func (r repos) do(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.st)
}

func (r repos) Accounts() repository.AccountRepositoryInterface         { return &accounts{r} }
func (r repos) Campaigns() repository.CampaignRepositoryInterface       { return &campaigns{r} }
func (r repos) Applications() repository.ApplicationRepositoryInterface { return &applications{r} }
func (r repos) Ledger() repository.LedgerRepositoryInterface            { return &ledger{r} }
func (r repos) Profiles() repository.ProfileRepositoryInterface         { return &profiles{r} }

// ---- accounts ----

type accounts struct{ repos }

func (r *accounts) Create(ctx context.Context, a *model.Account) error {
	return r.do(func(st *state) error {
		if _, ok := st.accounts[a.ID]; ok {
			return repository.ErrDuplicate
		}
		if a.Email != "" {
			for _, other := range st.accounts {
				if strings.EqualFold(other.Email, a.Email) {
					return repository.ErrDuplicate
				}
			}
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		cp := *a
		st.accounts[a.ID] = &cp
		return nil
	})
}

func (r *accounts) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var out *model.Account
	err := r.do(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return appErrors.NewAccountNotFound(id)
		}
		cp := *a
		out = &cp
		return nil
	})
	return out, err
}

func (r *accounts) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var out *model.Account
	err := r.do(func(st *state) error {
		for _, a := range st.accounts {
			if strings.EqualFold(a.Email, email) {
				cp := *a
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

// ---- campaigns ----

type campaigns struct{ repos }

func (r *campaigns) Create(ctx context.Context, c *model.Campaign) error {
	return r.do(func(st *state) error {
		if _, ok := st.campaigns[c.ID]; ok {
			return repository.ErrDuplicate
		}
		c.CreatedAt = time.Now().UTC()
		if c.Status == "" {
			c.Status = model.CampaignActive
		}
		if c.Platforms == nil {
			c.Platforms = []string{}
		}
		st.campaigns[c.ID] = c.Clone()
		st.order(c.ID)
		return nil
	})
}

func (r *campaigns) Update(ctx context.Context, c *model.Campaign) error {
	return r.do(func(st *state) error {
		cur, ok := st.campaigns[c.ID]
		if !ok {
			return appErrors.NewCampaignNotFound(c.ID)
		}
		now := time.Now().UTC()
		c.UpdatedAt = &now
		c.CreatedAt = cur.CreatedAt
		c.OwnerID = cur.OwnerID
		st.campaigns[c.ID] = c.Clone()
		return nil
	})
}

func (r *campaigns) UpdateStatus(ctx context.Context, campaignID string, status model.CampaignStatus) error {
	return r.do(func(st *state) error {
		c, ok := st.campaigns[campaignID]
		if !ok {
			return appErrors.NewCampaignNotFound(campaignID)
		}
		now := time.Now().UTC()
		c.Status = status
		c.UpdatedAt = &now
		return nil
	})
}

func (r *campaigns) Delete(ctx context.Context, id string) error {
	return r.do(func(st *state) error {
		if _, ok := st.campaigns[id]; !ok {
			return appErrors.NewCampaignNotFound(id)
		}
		delete(st.campaigns, id)
		delete(st.seq, id)
		for appID, a := range st.applications {
			if a.CampaignID == id {
				delete(st.applications, appID)
				delete(st.seq, appID)
			}
		}
		return nil
	})
}

func (r *campaigns) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	var out *model.Campaign
	err := r.do(func(st *state) error {
		c, ok := st.campaigns[id]
		if !ok {
			return appErrors.NewCampaignNotFound(id)
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; the transaction already holds the store lock.
func (r *campaigns) GetForUpdate(ctx context.Context, id string) (*model.Campaign, error) {
	return r.GetByID(ctx, id)
}

func (r *campaigns) ListCampaigns(ctx context.Context, offset, limit int, niche, status string) ([]*model.Campaign, int, error) {
	var page []*model.Campaign
	var total int
	err := r.do(func(st *state) error {
		matched := []*model.Campaign{}
		for _, c := range st.campaigns {
			if niche != "" && c.Niche != niche {
				continue
			}
			if status != "" && string(c.Status) != status {
				continue
			}
			matched = append(matched, c)
		}
		sortCampaigns(st, matched)
		total = len(matched)
		page = clonePage(matched, offset, limit, (*model.Campaign).Clone)
		return nil
	})
	return page, total, err
}

func (r *campaigns) ListByOwner(ctx context.Context, ownerID string) ([]*model.Campaign, error) {
	var out []*model.Campaign
	err := r.do(func(st *state) error {
		matched := []*model.Campaign{}
		for _, c := range st.campaigns {
			if c.OwnerID == ownerID {
				matched = append(matched, c)
			}
		}
		sortCampaigns(st, matched)
		out = clonePage(matched, 0, len(matched), (*model.Campaign).Clone)
		return nil
	})
	return out, err
}

func (r *campaigns) GetCampaignStats(ctx context.Context, campaignID string) (map[string]int, error) {
	stats := map[string]int{"total": 0, "pending": 0, "accepted": 0, "rejected": 0}
	err := r.do(func(st *state) error {
		for _, a := range st.applications {
			if a.CampaignID == campaignID {
				stats[string(a.Status)]++
				stats["total"]++
			}
		}
		return nil
	})
	return stats, err
}

func sortCampaigns(st *state, list []*model.Campaign) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return st.seq[list[i].ID] > st.seq[list[j].ID]
	})
}

func clonePage[T any](list []T, offset, limit int, clone func(T) T) []T {
	out := []T{}
	if offset < 0 {
		offset = 0
	}
	for i := offset; i < len(list) && len(out) < limit; i++ {
		out = append(out, clone(list[i]))
	}
	return out
}

// ---- applications ----

type applications struct{ repos }

func (r *applications) Create(ctx context.Context, a *model.Application) error {
	return r.do(func(st *state) error {
		if _, ok := st.applications[a.ID]; ok {
			return repository.ErrDuplicate
		}
		for _, other := range st.applications {
			if other.CampaignID == a.CampaignID && other.CreatorID == a.CreatorID {
				return repository.ErrDuplicate
			}
		}
		if _, ok := st.campaigns[a.CampaignID]; !ok {
			return appErrors.NewCampaignNotFound(a.CampaignID)
		}
		if a.AppliedAt.IsZero() {
			a.AppliedAt = time.Now().UTC()
		}
		st.applications[a.ID] = a.Clone()
		st.order(a.ID)
		return nil
	})
}

func (r *applications) Update(ctx context.Context, a *model.Application) error {
	return r.do(func(st *state) error {
		cur, ok := st.applications[a.ID]
		if !ok {
			return appErrors.NewApplicationNotFound(a.ID)
		}
		next := cur.Clone()
		next.Status = a.Status
		next.DecidedAt = a.Clone().DecidedAt
		next.ContactUnlockedAt = a.Clone().ContactUnlockedAt
		st.applications[a.ID] = next
		return nil
	})
}

func (r *applications) GetByID(ctx context.Context, id string) (*model.Application, error) {
	var out *model.Application
	err := r.do(func(st *state) error {
		a, ok := st.applications[id]
		if !ok {
			return appErrors.NewApplicationNotFound(id)
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

func (r *applications) GetForUpdate(ctx context.Context, id string) (*model.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *applications) GetByCampaignAndCreator(ctx context.Context, campaignID, creatorID string) (*model.Application, error) {
	var out *model.Application
	err := r.do(func(st *state) error {
		for _, a := range st.applications {
			if a.CampaignID == campaignID && a.CreatorID == creatorID {
				out = a.Clone()
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *applications) ListByCampaign(ctx context.Context, campaignID string) ([]*model.Application, error) {
	return r.list(func(a *model.Application) bool { return a.CampaignID == campaignID }, false)
}

func (r *applications) ListByCreator(ctx context.Context, creatorID string) ([]*model.Application, error) {
	return r.list(func(a *model.Application) bool { return a.CreatorID == creatorID }, true)
}

func (r *applications) list(match func(*model.Application) bool, newestFirst bool) ([]*model.Application, error) {
	var out []*model.Application
	err := r.do(func(st *state) error {
		matched := []*model.Application{}
		for _, a := range st.applications {
			if match(a) {
				matched = append(matched, a)
			}
		}
		sort.Slice(matched, func(i, j int) bool {
			less := st.seq[matched[i].ID] < st.seq[matched[j].ID]
			if newestFirst {
				return !less
			}
			return less
		})
		out = clonePage(matched, 0, len(matched), (*model.Application).Clone)
		return nil
	})
	return out, err
}

// ---- ledger ----

type ledger struct{ repos }

func (r *ledger) OpenBalance(ctx context.Context, accountID string) error {
	return r.do(func(st *state) error {
		if _, ok := st.balances[accountID]; !ok {
			st.balances[accountID] = 0
		}
		return nil
	})
}

func (r *ledger) LockBalance(ctx context.Context, accountID string) (int64, error) {
	return r.GetBalance(ctx, accountID)
}

func (r *ledger) GetBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := r.do(func(st *state) error {
		b, ok := st.balances[accountID]
		if !ok {
			return appErrors.NewAccountNotFound(accountID)
		}
		balance = b
		return nil
	})
	return balance, err
}

func (r *ledger) SetBalance(ctx context.Context, accountID string, balance int64) error {
	return r.do(func(st *state) error {
		if _, ok := st.balances[accountID]; !ok {
			return appErrors.NewAccountNotFound(accountID)
		}
		if balance < 0 {
			return errNegativeBalance
		}
		st.balances[accountID] = balance
		return nil
	})
}

func (r *ledger) GetByIdempotencyKey(ctx context.Context, accountID, key string) (*model.LedgerEntry, error) {
	var out *model.LedgerEntry
	err := r.do(func(st *state) error {
		for _, e := range st.entries {
			if e.AccountID == accountID && e.IdempotencyKey == key {
				cp := *e
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *ledger) Append(ctx context.Context, e *model.LedgerEntry) error {
	return r.do(func(st *state) error {
		for _, other := range st.entries {
			if other.ID == e.ID || (other.AccountID == e.AccountID && other.IdempotencyKey == e.IdempotencyKey) {
				return repository.ErrDuplicate
			}
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		cp := *e
		st.entries = append(st.entries, &cp)
		return nil
	})
}

func (r *ledger) SumDeltas(ctx context.Context, accountID string) (int64, int, error) {
	var sum int64
	var count int
	err := r.do(func(st *state) error {
		for _, e := range st.entries {
			if e.AccountID == accountID {
				sum += e.Delta
				count++
			}
		}
		return nil
	})
	return sum, count, err
}

func (r *ledger) ListEntries(ctx context.Context, accountID string, offset, limit int) ([]*model.LedgerEntry, int, error) {
	var page []*model.LedgerEntry
	var total int
	err := r.do(func(st *state) error {
		matched := []*model.LedgerEntry{}
		for i := len(st.entries) - 1; i >= 0; i-- {
			if st.entries[i].AccountID == accountID {
				matched = append(matched, st.entries[i])
			}
		}
		total = len(matched)
		page = clonePage(matched, offset, limit, func(e *model.LedgerEntry) *model.LedgerEntry {
			cp := *e
			return &cp
		})
		return nil
	})
	return page, total, err
}

func (r *ledger) ListAccountIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.do(func(st *state) error {
		for id := range st.balances {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return nil
	})
	return ids, err
}

// ---- profiles ----

type profiles struct{ repos }

func (r *profiles) Upsert(ctx context.Context, p *model.Profile) error {
	return r.do(func(st *state) error {
		now := time.Now().UTC()
		p.UpdatedAt = &now
		if p.Platforms == nil {
			p.Platforms = []string{}
		}
		next := p.Clone()
		if cur, ok := st.profiles[p.AccountID]; ok {
			next.Kind = cur.Kind
		}
		st.profiles[p.AccountID] = next
		return nil
	})
}

func (r *profiles) GetByAccountID(ctx context.Context, accountID string) (*model.Profile, error) {
	var out *model.Profile
	err := r.do(func(st *state) error {
		p, ok := st.profiles[accountID]
		if !ok {
			return appErrors.NewNotFound("profile", accountID)
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r *profiles) ListCreators(ctx context.Context, offset, limit int, niche, platform string) ([]*model.Profile, int, error) {
	var page []*model.Profile
	var total int
	err := r.do(func(st *state) error {
		matched := []*model.Profile{}
		for _, p := range st.profiles {
			if p.Kind != model.RoleCreator {
				continue
			}
			if niche != "" && p.Niche != niche {
				continue
			}
			if platform != "" && !contains(p.Platforms, platform) {
				continue
			}
			matched = append(matched, p)
		}
		sort.Slice(matched, func(i, j int) bool {
			if matched[i].FollowerCount != matched[j].FollowerCount {
				return matched[i].FollowerCount > matched[j].FollowerCount
			}
			return matched[i].AccountID < matched[j].AccountID
		})
		total = len(matched)
		page = clonePage(matched, offset, limit, (*model.Profile).Clone)
		return nil
	})
	return page, total, err
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

var _ repository.Store = (*Store)(nil)
