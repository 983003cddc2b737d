// Package memory is an in-process store driver backing the service and HTTP
// test suites; the sqlite driver is the production path.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/internal/identity/store"
)

type state struct {
	users       map[string]*userRecord // by user id
	rolesByID   map[string]domain.Role
	rolesByName map[string]string                    // name -> id
	clients     map[string]domain.ClientCredential   // by internal id
	clientIDs   map[string]string                    // client_id -> internal id
	tokens      map[string]domain.PasswordResetToken // by token value
}

type userRecord struct {
	user    domain.User // Roles left empty; roleIDs is authoritative
	roleIDs map[string]struct{}
}

type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore returns an empty store pre-seeded with the baseline roles, the
// same reference data the sqlite schema migration inserts.
func NewStore() *Store {
	s := &Store{st: &state{
		users:       map[string]*userRecord{},
		rolesByID:   map[string]domain.Role{},
		rolesByName: map[string]string{},
		clients:     map[string]domain.ClientCredential{},
		clientIDs:   map[string]string{},
		tokens:      map[string]domain.PasswordResetToken{},
	}}

	for _, r := range []domain.Role{
		{ID: "01000000000000000000000001", Name: domain.RoleUser, Description: "Baseline account permissions"},
		{ID: "01000000000000000000000002", Name: domain.RoleAdmin, Description: "Full administrative access"},
	} {
		s.st.rolesByID[r.ID] = r
		s.st.rolesByName[r.Name] = r.ID
	}
	return s
}

func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) ApplyMigrations() error         { return nil } // schema is in-process

func (s *Store) Users() store.Users             { return &usersRepo{s: s, locked: false} }
func (s *Store) Roles() store.Roles             { return &rolesRepo{s: s, locked: false} }
func (s *Store) Clients() store.Clients         { return &clientsRepo{s: s, locked: false} }
func (s *Store) ResetTokens() store.ResetTokens { return &resetTokensRepo{s: s, locked: false} }

// Tx takes the store lock for the transaction's lifetime and snapshots the
// state so Rollback can restore it. Concurrent callers serialize here, which
// is the semantics the tests need rather than a performance path.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	s.mu.Lock()
	return &txStore{s: s, snapshot: s.st.clone()}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type txStore struct {
	s        *Store
	snapshot *state
	done     bool
}

func (t *txStore) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (t *txStore) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.st = t.snapshot
	t.s.mu.Unlock()
	return nil
}

func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error         { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, store.ErrNotFound // nested tx not supported
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.ErrNotFound // nested tx not supported
}

func (t *txStore) Users() store.Users             { return &usersRepo{s: t.s, locked: true} }
func (t *txStore) Roles() store.Roles             { return &rolesRepo{s: t.s, locked: true} }
func (t *txStore) Clients() store.Clients         { return &clientsRepo{s: t.s, locked: true} }
func (t *txStore) ResetTokens() store.ResetTokens { return &resetTokensRepo{s: t.s, locked: true} }

func (st *state) clone() *state {
	next := &state{
		users:       make(map[string]*userRecord, len(st.users)),
		rolesByID:   make(map[string]domain.Role, len(st.rolesByID)),
		rolesByName: make(map[string]string, len(st.rolesByName)),
		clients:     make(map[string]domain.ClientCredential, len(st.clients)),
		clientIDs:   make(map[string]string, len(st.clientIDs)),
		tokens:      make(map[string]domain.PasswordResetToken, len(st.tokens)),
	}
	for id, rec := range st.users {
		roleIDs := make(map[string]struct{}, len(rec.roleIDs))
		for rid := range rec.roleIDs {
			roleIDs[rid] = struct{}{}
		}
		next.users[id] = &userRecord{user: rec.user, roleIDs: roleIDs}
	}
	for k, v := range st.rolesByID {
		next.rolesByID[k] = v
	}
	for k, v := range st.rolesByName {
		next.rolesByName[k] = v
	}
	for k, v := range st.clients {
		next.clients[k] = cloneClient(v)
	}
	for k, v := range st.clientIDs {
		next.clientIDs[k] = v
	}
	for k, v := range st.tokens {
		next.tokens[k] = v
	}
	return next
}

func cloneClient(c domain.ClientCredential) domain.ClientCredential {
	c.AuthenticationMethods = append([]string(nil), c.AuthenticationMethods...)
	c.GrantTypes = append([]string(nil), c.GrantTypes...)
	c.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	c.Scopes = append([]string(nil), c.Scopes...)
	c.ClientSettings = cloneMap(c.ClientSettings)
	c.TokenSettings = cloneMap(c.TokenSettings)
	return c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// lock acquires the store mutex unless the caller already holds it (tx scope).
func lock(s *Store, locked bool) func() {
	if locked {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (st *state) materialize(rec *userRecord) domain.User {
	u := rec.user
	names := make([]string, 0, len(rec.roleIDs))
	for rid := range rec.roleIDs {
		names = append(names, st.rolesByID[rid].Name)
	}
	sort.Strings(names)

	u.Roles = make([]domain.Role, 0, len(names))
	for _, name := range names {
		u.Roles = append(u.Roles, st.rolesByID[st.rolesByName[name]])
	}
	return u
}

type usersRepo struct {
	s      *Store
	locked bool
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	defer lock(r.s, r.locked)()
	st := r.s.st

	if _, ok := st.users[u.ID]; ok {
		return store.ErrAlreadyExists
	}
	for _, rec := range st.users {
		if rec.user.Username == u.Username {
			return store.ErrAlreadyExists
		}
	}

	roleIDs := make(map[string]struct{}, len(u.Roles))
	for _, role := range u.Roles {
		roleIDs[role.ID] = struct{}{}
	}

	now := time.Now().UTC()
	rec := &userRecord{user: u, roleIDs: roleIDs}
	rec.user.Roles = nil
	rec.user.CreatedAt = now
	rec.user.UpdatedAt = now
	st.users[u.ID] = rec
	return nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	defer lock(r.s, r.locked)()
	rec, ok := r.s.st.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return r.s.st.materialize(rec), nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	defer lock(r.s, r.locked)()
	for _, rec := range r.s.st.users {
		if rec.user.Username == username {
			return r.s.st.materialize(rec), nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	defer lock(r.s, r.locked)()
	st := r.s.st

	users := make([]domain.User, 0, len(st.users))
	for _, rec := range st.users {
		users = append(users, st.materialize(rec))
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})
	return users, nil
}

func (r *usersRepo) AddRole(ctx context.Context, userID, roleID string) error {
	defer lock(r.s, r.locked)()
	st := r.s.st

	rec, ok := st.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := st.rolesByID[roleID]; !ok {
		return store.ErrNotFound
	}
	rec.roleIDs[roleID] = struct{}{} // set semantics: re-adding is a no-op
	return nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	defer lock(r.s, r.locked)()
	rec, ok := r.s.st.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	rec.user.PasswordHash = newHash
	rec.user.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	defer lock(r.s, r.locked)()
	st := r.s.st

	if _, ok := st.users[userID]; !ok {
		return store.ErrNotFound
	}
	delete(st.users, userID)

	// Reset tokens cascade with the account, matching the sqlite schema.
	for token, t := range st.tokens {
		if t.UserID == userID {
			delete(st.tokens, token)
		}
	}
	return nil
}

type rolesRepo struct {
	s      *Store
	locked bool
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	defer lock(r.s, r.locked)()
	id, ok := r.s.st.rolesByName[name]
	if !ok {
		return domain.Role{}, store.ErrNotFound
	}
	return r.s.st.rolesByID[id], nil
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	defer lock(r.s, r.locked)()
	st := r.s.st

	roles := make([]domain.Role, 0, len(st.rolesByID))
	for _, role := range st.rolesByID {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

// DeleteRoleByName removes a role from the reference data. Test helper for
// exercising missing-role paths; production roles are never deleted.
func (s *Store) DeleteRoleByName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.st.rolesByName[name]; ok {
		delete(s.st.rolesByID, id)
		delete(s.st.rolesByName, name)
	}
}

type clientsRepo struct {
	s      *Store
	locked bool
}

func (r *clientsRepo) SaveClient(ctx context.Context, c domain.ClientCredential) error {
	defer lock(r.s, r.locked)()
	st := r.s.st

	if existing, ok := st.clientIDs[c.ClientID]; ok && existing != c.ID {
		return store.ErrAlreadyExists
	}
	st.clients[c.ID] = cloneClient(c)
	st.clientIDs[c.ClientID] = c.ID
	return nil
}

func (r *clientsRepo) GetClientByClientID(ctx context.Context, clientID string) (domain.ClientCredential, error) {
	defer lock(r.s, r.locked)()
	id, ok := r.s.st.clientIDs[clientID]
	if !ok {
		return domain.ClientCredential{}, store.ErrNotFound
	}
	return cloneClient(r.s.st.clients[id]), nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.ClientCredential, error) {
	defer lock(r.s, r.locked)()
	c, ok := r.s.st.clients[id]
	if !ok {
		return domain.ClientCredential{}, store.ErrNotFound
	}
	return cloneClient(c), nil
}

type resetTokensRepo struct {
	s      *Store
	locked bool
}

func (r *resetTokensRepo) CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error {
	defer lock(r.s, r.locked)()
	st := r.s.st

	if _, ok := st.tokens[t.Token]; ok {
		return store.ErrAlreadyExists
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	st.tokens[t.Token] = t
	return nil
}

func (r *resetTokensRepo) GetResetTokenByValue(ctx context.Context, token string) (domain.PasswordResetToken, error) {
	defer lock(r.s, r.locked)()
	t, ok := r.s.st.tokens[token]
	if !ok {
		return domain.PasswordResetToken{}, store.ErrNotFound
	}
	return t, nil
}

func (r *resetTokensRepo) DeleteResetToken(ctx context.Context, id string) error {
	defer lock(r.s, r.locked)()
	for token, t := range r.s.st.tokens {
		if t.ID == id {
			delete(r.s.st.tokens, token)
			return nil
		}
	}
	return store.ErrNotFound
}
