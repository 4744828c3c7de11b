package role

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/kvstore"
	"github.com/spec-kit/support-desk/internal/permission"
	"github.com/spec-kit/support-desk/pkg/apperrors"
)

// Registry owns the set of roles. It is the last line of defense for
// system-role protection: editing UIs disable those controls, but the
// registry refuses regardless.
type Registry struct {
	mu     sync.Mutex
	kv     kvstore.Store
	key    string
	logger *zap.Logger
	now    func() time.Time

	roles map[string]*domain.Role
}

type snapshot struct {
	Roles []domain.Role `json:"roles"`
}

// Input carries role form data for create and update.
type Input struct {
	Name        string
	Description string
	Permissions []domain.Permission
}

// NewRegistry loads the persisted role set.
func NewRegistry(ctx context.Context, kv kvstore.Store, key string, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		kv:     kv,
		key:    key,
		logger: logger,
		now:    time.Now,
		roles:  make(map[string]*domain.Role),
	}

	raw, found, err := kv.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load role snapshot: %w", err)
	}
	if found {
		var snap snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("decode role snapshot: %w", err)
		}
		for i := range snap.Roles {
			role := snap.Roles[i]
			r.roles[role.ID] = &role
		}
	}
	return r, nil
}

// Bootstrap seeds the built-in role set once, when the registry is
// empty. Calling it again is a no-op.
func (r *Registry) Bootstrap(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.roles) > 0 {
		return nil
	}

	now := r.now()
	for _, seed := range systemRoleSeeds() {
		role := seed
		role.IsSystem = true
		role.CreatedAt = now
		role.UpdatedAt = now
		r.roles[role.ID] = &role
	}
	if err := r.persistLocked(ctx); err != nil {
		return err
	}
	r.logger.Info("system roles seeded", zap.Int("count", len(r.roles)))
	return nil
}

// List returns all roles ordered by name.
func (r *Registry) List(ctx context.Context) []domain.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, *cloneRole(role))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetByID returns the role or nil when unknown.
func (r *Registry) GetByID(id string) *domain.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil
	}
	return cloneRole(role)
}

// Create stores a new non-system role with a generated id.
func (r *Registry) Create(ctx context.Context, in Input) (*domain.Role, error) {
	permissions, err := normalizePermissions(in.Permissions)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, apperrors.NewValidationError("role name is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	role := &domain.Role{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Permissions: permissions,
		IsSystem:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.roles[role.ID] = role
	if err := r.persistLocked(ctx); err != nil {
		delete(r.roles, role.ID)
		return nil, err
	}
	return cloneRole(role), nil
}

// Update applies form data to an existing role. It returns (nil, nil)
// when the id is unknown, and refuses name/permission mutation of
// system roles the same way so bulk UI flows can branch without
// exception handling. Concurrent updates are last-write-wins.
func (r *Registry) Update(ctx context.Context, id string, in Input) (*domain.Role, error) {
	permissions, err := normalizePermissions(in.Permissions)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		r.logger.Warn("role update ignored: not found", zap.String("role_id", id))
		return nil, nil
	}
	if role.IsSystem && (in.Name != role.Name || !permissionsEqual(permissions, role.Permissions)) {
		r.logger.Warn("role update refused: system role is protected", zap.String("role_id", id))
		return nil, nil
	}

	previous := *cloneRole(role)
	role.Name = in.Name
	role.Description = in.Description
	role.Permissions = permissions
	role.UpdatedAt = r.now()
	if err := r.persistLocked(ctx); err != nil {
		*role = previous
		return nil, err
	}
	return cloneRole(role), nil
}

// Delete removes a role. It returns (false, nil) when the id is
// unknown or the role is a protected system role; the two refusals are
// logged distinctly. A persistence failure restores the role and is
// reported as an error, never as a refusal.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		r.logger.Warn("role delete ignored: not found", zap.String("role_id", id))
		return false, nil
	}
	if role.IsSystem {
		r.logger.Warn("role delete refused: system role is protected", zap.String("role_id", id))
		return false, nil
	}

	delete(r.roles, id)
	if err := r.persistLocked(ctx); err != nil {
		r.roles[id] = role
		return false, err
	}
	return true, nil
}

// HasPermission reports whether the stored role carries the token.
func (r *Registry) HasPermission(roleID string, token domain.Permission) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleID]
	if !ok {
		return false
	}
	return role.HasPermission(token)
}

// GetPermissions returns the stored permission set for the role, or
// nil when the role is unknown.
func (r *Registry) GetPermissions(roleID string) []domain.Permission {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleID]
	if !ok {
		return nil
	}
	out := make([]domain.Permission, len(role.Permissions))
	copy(out, role.Permissions)
	return out
}

// Count returns the number of stored roles.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roles)
}

func (r *Registry) persistLocked(ctx context.Context) error {
	ids := make([]string, 0, len(r.roles))
	for id := range r.roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snap := snapshot{Roles: make([]domain.Role, 0, len(ids))}
	for _, id := range ids {
		snap.Roles = append(snap.Roles, *r.roles[id])
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode role snapshot: %w", err)
	}
	if err := r.kv.Save(ctx, r.key, raw); err != nil {
		return fmt.Errorf("save role snapshot: %w", err)
	}
	return nil
}

// normalizePermissions dedupes, sorts, and rejects tokens outside the
// closed catalog.
func normalizePermissions(tokens []domain.Permission) ([]domain.Permission, error) {
	seen := make(map[domain.Permission]struct{}, len(tokens))
	out := make([]domain.Permission, 0, len(tokens))
	for _, token := range tokens {
		if !permission.Known(token) {
			return nil, apperrors.NewValidationError("unknown permission token", map[string]any{"permission": token})
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func permissionsEqual(a, b []domain.Permission) bool {
	if len(a) != len(b) {
		return false
	}
	bSorted := make([]domain.Permission, len(b))
	copy(bSorted, b)
	sort.Slice(bSorted, func(i, j int) bool { return bSorted[i] < bSorted[j] })
	for i := range a {
		if a[i] != bSorted[i] {
			return false
		}
	}
	return true
}

func cloneRole(role *domain.Role) *domain.Role {
	clone := *role
	clone.Permissions = make([]domain.Permission, len(role.Permissions))
	copy(clone.Permissions, role.Permissions)
	return &clone
}
