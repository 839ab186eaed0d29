package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const testSystemAccountID int64 = 1

// memStore backs every repository port with maps guarded by one mutex.
type memStore struct {
	mu sync.Mutex

	users     map[int64]*domain.User
	articles  map[int64]domain.Article
	comments  map[int64]domain.Comment
	reactions []domain.Reaction
	notes     []domain.Note
	follows   map[[2]int64]bool
	orgs      map[int64][]int64
	blocked   map[string]time.Time
	outbox    []ports.OutboxEvent
	dedup     map[string]time.Time

	nextID       int64
	penaltyErrAt int64
	// enqueueErr fails the next Enqueue call once.
	enqueueErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*domain.User{},
		articles: map[int64]domain.Article{},
		comments: map[int64]domain.Comment{},
		follows:  map[[2]int64]bool{},
		orgs:     map[int64][]int64{},
		blocked:  map[string]time.Time{},
		dedup:    map[string]time.Time{},
		nextID:   10_000,
	}
}

func (s *memStore) addUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ReputationModifier == 0 {
		u.ReputationModifier = 1.0
	}
	cp := u
	cp.Roles = append([]domain.Role(nil), u.Roles...)
	s.users[u.ID] = &cp
}

func (s *memStore) addArticle(a domain.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.ID] = a
}

func (s *memStore) addComment(c domain.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[c.ID] = c
}

func (s *memStore) addReaction(userID int64, target domain.EntityRef, category domain.ReactionCategory, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.reactions = append(s.reactions, domain.Reaction{ID: s.nextID, UserID: userID, Reactable: target, Category: category, CreatedAt: at})
}

func (s *memStore) follow(a, b int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follows[[2]int64{a, b}] = true
}

func (s *memStore) joinOrg(userID, orgID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[userID] = append(s.orgs[userID], orgID)
}

func (s *memStore) user(id int64) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *s.users[id]
	u.Roles = append([]domain.Role(nil), u.Roles...)
	return u
}

func (s *memStore) notesFor(userID int64) []domain.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Note
	for _, n := range s.notes {
		if n.Noteable == domain.UserRef(userID) {
			out = append(out, n)
		}
	}
	return out
}

func (s *memStore) reactionsBy(userID int64, category domain.ReactionCategory) []domain.Reaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Reaction
	for _, r := range s.reactions {
		if r.UserID == userID && r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) outboxOf(eventType string) []ports.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.OutboxEvent
	for _, e := range s.outbox {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// UserRepository

func (s *memStore) GetByID(_ context.Context, userID int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	out := *u
	out.Roles = append([]domain.Role(nil), u.Roles...)
	return out, nil
}

func (s *memStore) ListByIDs(_ context.Context, userIDs []int64) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.User
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memStore) onDomain(emailDomain string) []*domain.User {
	var out []*domain.User
	for _, u := range s.users {
		if strings.HasSuffix(strings.ToLower(u.Email), "@"+emailDomain) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) ListByEmailDomain(_ context.Context, emailDomain string) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.User
	for _, u := range s.onDomain(emailDomain) {
		out = append(out, *u)
	}
	return out, nil
}

func (s *memStore) ExistsByEmailDomainRegisteredBefore(_ context.Context, emailDomain string, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.onDomain(emailDomain) {
		if u.RegisteredAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CountByEmailDomainWithRolesRegisteredSince(_ context.Context, emailDomain string, roles []domain.Role, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.onDomain(emailDomain) {
		if u.RegisteredAt.Before(cutoff) {
			continue
		}
		for _, r := range roles {
			if u.HasRole(r) {
				n++
				break
			}
		}
	}
	return n, nil
}

// ContentRepository

func (s *memStore) GetArticle(_ context.Context, id int64) (domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return domain.Article{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *memStore) GetComment(_ context.Context, id int64) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, nil
}

// ReactionRepository

func (s *memStore) CreateIfAbsent(_ context.Context, p ports.CreateReactionParams) (domain.Reaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reactions {
		if r.UserID == p.UserID && r.Reactable == p.Reactable && r.Category == p.Category {
			return r, false, nil
		}
	}
	s.nextID++
	r := domain.Reaction{ID: s.nextID, UserID: p.UserID, Reactable: p.Reactable, Category: p.Category, CreatedAt: p.CreatedAt}
	s.reactions = append(s.reactions, r)
	return r, true, nil
}

func (s *memStore) ownerOf(ref domain.EntityRef) (int64, bool) {
	switch ref.Kind {
	case domain.EntityArticle:
		a, ok := s.articles[ref.ID]
		return a.UserID, ok
	case domain.EntityComment:
		c, ok := s.comments[ref.ID]
		return c.UserID, ok
	case domain.EntityUser:
		return ref.ID, true
	}
	return 0, false
}

func (s *memStore) CountByReactorOnOwnedContent(_ context.Context, ownerID int64, kind domain.EntityKind, reactorID int64, category domain.ReactionCategory) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.reactions {
		if r.UserID != reactorID || r.Category != category || r.Reactable.Kind != kind {
			continue
		}
		if owner, ok := s.ownerOf(r.Reactable); ok && owner == ownerID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) articleReactions(categories []domain.ReactionCategory, since time.Time, fn func(reactor, author int64)) {
	allowed := map[domain.ReactionCategory]bool{}
	for _, c := range categories {
		allowed[c] = true
	}
	for _, r := range s.reactions {
		if r.Reactable.Kind != domain.EntityArticle || !allowed[r.Category] || r.CreatedAt.Before(since) {
			continue
		}
		a, ok := s.articles[r.Reactable.ID]
		if !ok {
			continue
		}
		fn(r.UserID, a.UserID)
	}
}

func (s *memStore) ArticleReactionFootprints(_ context.Context, userIDs []int64, categories []domain.ReactionCategory, since time.Time) (map[int64]domain.ReactionFootprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	out := map[int64]domain.ReactionFootprint{}
	s.articleReactions(categories, since, func(reactor, author int64) {
		if !want[reactor] {
			return
		}
		fp := out[reactor]
		fp.UserID = reactor
		fp.Authors = append(fp.Authors, author)
		out[reactor] = fp
	})
	return out, nil
}

func (s *memStore) UsersReactingToAuthors(_ context.Context, authorIDs []int64, categories []domain.ReactionCategory, since time.Time, excludeUserID int64, minAuthors int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[int64]bool{}
	for _, id := range authorIDs {
		wanted[id] = true
	}
	seen := map[int64]map[int64]bool{}
	s.articleReactions(categories, since, func(reactor, author int64) {
		if reactor == excludeUserID || !wanted[author] {
			return
		}
		if seen[reactor] == nil {
			seen[reactor] = map[int64]bool{}
		}
		seen[reactor][author] = true
	})
	var out []int64
	for reactor, authors := range seen {
		if len(authors) >= minAuthors {
			out = append(out, reactor)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// SocialGraphRepository

func (s *memStore) MutuallyFollow(_ context.Context, a, b int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.follows[[2]int64{a, b}] && s.follows[[2]int64{b, a}], nil
}

func (s *memStore) ShareOrganization(_ context.Context, a, b int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.orgs[a] {
		for _, y := range s.orgs[b] {
			if x == y {
				return true, nil
			}
		}
	}
	return false, nil
}

// ModerationRepository

func (s *memStore) SuspendUser(_ context.Context, p ports.SuspendUserParams) (domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[p.UserID]
	if !ok {
		return domain.Note{}, domain.ErrNotFound
	}
	if !u.HasRole(domain.RoleSuspended) {
		u.Roles = append(u.Roles, domain.RoleSuspended)
	}
	s.nextID++
	n := domain.Note{ID: s.nextID, AuthorID: p.AuthorID, Noteable: domain.UserRef(p.UserID), Reason: p.Reason, Content: p.Content, CreatedAt: p.At}
	s.notes = append(s.notes, n)
	if p.Event != nil {
		s.outbox = append(s.outbox, *p.Event)
	}
	return n, nil
}

var errPenaltyWrite = errors.New("penalty write failed")

func (s *memStore) ApplyReputationPenalty(_ context.Context, p ports.ReputationPenaltyParams) ([]ports.ReputationPenaltyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range p.UserIDs {
		if _, ok := s.users[id]; !ok {
			return nil, domain.ErrNotFound
		}
		if id == s.penaltyErrAt {
			return nil, errPenaltyWrite
		}
	}
	results := make([]ports.ReputationPenaltyResult, 0, len(p.UserIDs))
	for _, id := range p.UserIDs {
		u := s.users[id]
		prev := u.ReputationModifier
		u.ReputationModifier = p.Adjust(prev)
		s.nextID++
		s.notes = append(s.notes, domain.Note{ID: s.nextID, AuthorID: p.AuthorID, Noteable: domain.UserRef(id), Reason: p.Reason, Content: p.Content(u.ReputationModifier), CreatedAt: p.At})
		results = append(results, ports.ReputationPenaltyResult{UserID: id, Previous: prev, Updated: u.ReputationModifier})
	}
	if p.Event != nil {
		s.outbox = append(s.outbox, *p.Event)
	}
	return results, nil
}

func (s *memStore) BlockEmailDomain(_ context.Context, emailDomain string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocked[emailDomain]; ok {
		return false, nil
	}
	s.blocked[emailDomain] = at
	return true, nil
}

// OutboxRepository

func (s *memStore) Enqueue(_ context.Context, e ports.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enqueueErr != nil {
		err := s.enqueueErr
		s.enqueueErr = nil
		return err
	}
	s.outbox = append(s.outbox, e)
	return nil
}

func (s *memStore) FetchUnpublished(context.Context, int) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (s *memStore) MarkPublished(context.Context, uuid.UUID, time.Time) error { return nil }

func (s *memStore) MarkFailed(context.Context, uuid.UUID, string, time.Time) error { return nil }

// EventDedupRepository

func (s *memStore) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.dedup[eventID]
	return ok && exp.After(now), nil
}

func (s *memStore) MarkProcessed(_ context.Context, eventID, _ string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dedup[eventID] = expiresAt
	return nil
}

// stubHeuristics flags text containing any trigger and treats listed users
// as new.
type stubHeuristics struct {
	mu        sync.Mutex
	triggers  []string
	newUsers  map[int64]bool
	err       error
	textCalls []string
}

func (h *stubHeuristics) TriggerSpamFor(_ context.Context, text string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.textCalls = append(h.textCalls, text)
	if h.err != nil {
		return false, h.err
	}
	for _, t := range h.triggers {
		if strings.Contains(text, t) {
			return true, nil
		}
	}
	return false, nil
}

func (h *stubHeuristics) UserConsideredNew(_ context.Context, user domain.User) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.newUsers[user.ID], nil
}

func (h *stubHeuristics) calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.textCalls...)
}

// mapCache is a Cache whose failure mode can be toggled.
type mapCache struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (c *mapCache) SetIfAbsent(_ context.Context, key, _ string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if c.keys == nil {
		c.keys = map[string]bool{}
	}
	if c.keys[key] {
		return false, nil
	}
	c.keys[key] = true
	return true, nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.keys, k)
	}
	return nil
}

type testEnv struct {
	svc   *Service
	store *memStore
	heur  *stubHeuristics
	cache *mapCache
}

func newTestEnv(cfg Config) testEnv {
	store := newMemStore()
	heur := &stubHeuristics{newUsers: map[int64]bool{}}
	c := &mapCache{}
	cfg.SystemAccountID = testSystemAccountID
	store.addUser(domain.User{ID: testSystemAccountID, Username: "mascot", RegisteredAt: testNow.AddDate(-5, 0, 0)})
	svc := NewService(Dependencies{
		Config:     cfg,
		Users:      store,
		Content:    store,
		Reactions:  store,
		Graph:      store,
		Moderation: store,
		Outbox:     store,
		EventDedup: store,
		Heuristics: heur,
		Cache:      c,
		Clock:      func() time.Time { return testNow },
	})
	return testEnv{svc: svc, store: store, heur: heur, cache: c}
}
