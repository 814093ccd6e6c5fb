package mutation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/entity"
)

// The reference entities (service, model, user) share one create/update/
// delete shape: validation, a natural-key uniqueness pre-check against the
// cache, an optimistic write, the network call, reconciliation, rollback.
// simpleSpec describes the per-entity pieces the generic core needs.
type simpleSpec[T any] struct {
	key      cache.Key
	label    string
	id       func(T) int64
	setID    func(*T, int64)
	validate func(T) entity.FieldErrors
	// duplicate returns field errors when payload collides with an
	// existing record other than excludeID.
	duplicate func(existing []T, payload T, excludeID int64) entity.FieldErrors
}

func createSimple[T any](ctx context.Context, o *Ops, spec simpleSpec[T], payload T,
	call func(context.Context, T) (T, error),
) (T, error) {
	var zero T

	if fe := spec.validate(payload); !fe.Ok() {
		return zero, &ValidationError{Fields: fe}
	}

	if fe := spec.duplicate(cache.Collection[T](o.Store, spec.key), payload, 0); !fe.Ok() {
		return zero, &ValidationError{Fields: fe}
	}

	m := Begin(o.Store, spec.key)

	temp := tempID()
	optimistic := payload
	spec.setID(&optimistic, temp)

	m.Stage(spec.key, func(cur any) any {
		items, _ := cur.([]T)

		return append([]T{optimistic}, items...)
	})

	created, err := call(ctx, payload)
	if err != nil {
		m.Rollback()
		return zero, err
	}

	m.Stage(spec.key, func(cur any) any {
		items, _ := cur.([]T)

		out := make([]T, len(items))
		for i, it := range items {
			if spec.id(it) == temp {
				it = created
			}

			out[i] = it
		}

		return out
	})
	m.Commit()

	o.Logger.Info(spec.label+" créé", slog.Int64("id", spec.id(created)))

	return created, nil
}

func updateSimple[T any](ctx context.Context, o *Ops, spec simpleSpec[T], prior, next T,
	call func(context.Context, int64, map[string]any) (T, error),
) (T, error) {
	var zero T

	if fe := spec.validate(next); !fe.Ok() {
		return zero, &ValidationError{Fields: fe}
	}

	if fe := spec.duplicate(cache.Collection[T](o.Store, spec.key), next, spec.id(prior)); !fe.Ok() {
		return zero, &ValidationError{Fields: fe}
	}

	origMap, err := entity.AsMap(prior)
	if err != nil {
		return zero, err
	}

	nextMap, err := entity.AsMap(next)
	if err != nil {
		return zero, err
	}

	diff := entity.ModifiedValues(origMap, nextMap)
	if entity.IsNoop(diff) {
		return prior, ErrNoChanges
	}

	m := Begin(o.Store, spec.key)

	m.Stage(spec.key, func(cur any) any {
		items, _ := cur.([]T)

		out := make([]T, len(items))
		for i, it := range items {
			if spec.id(it) == spec.id(prior) {
				it = next
			}

			out[i] = it
		}

		return out
	})

	updated, err := call(ctx, spec.id(prior), diff)
	if err != nil {
		m.Rollback()
		return zero, err
	}

	m.Stage(spec.key, func(cur any) any {
		items, _ := cur.([]T)

		out := make([]T, len(items))
		for i, it := range items {
			if spec.id(it) == spec.id(prior) {
				it = updated
			}

			out[i] = it
		}

		return out
	})
	m.Commit()

	o.Logger.Info(spec.label+" modifié", slog.Int64("id", spec.id(updated)))

	return updated, nil
}

func deleteSimple[T any](ctx context.Context, o *Ops, spec simpleSpec[T], id int64,
	call func(context.Context, int64) error,
) error {
	m := Begin(o.Store, spec.key)

	m.Stage(spec.key, func(cur any) any {
		items, _ := cur.([]T)

		out := make([]T, 0, len(items))
		for _, it := range items {
			if spec.id(it) != id {
				out = append(out, it)
			}
		}

		return out
	})

	if err := call(ctx, id); err != nil {
		m.Rollback()
		return err
	}

	m.Commit()

	o.Logger.Info(spec.label+" supprimé", slog.Int64("id", id))

	return nil
}

var serviceSpec = simpleSpec[entity.Service]{
	key:      cache.Services,
	label:    "service",
	id:       func(s entity.Service) int64 { return s.ID },
	setID:    func(s *entity.Service, id int64) { s.ID = id },
	validate: entity.ValidateService,
	duplicate: func(existing []entity.Service, payload entity.Service, excludeID int64) entity.FieldErrors {
		for _, s := range existing {
			if s.ID != excludeID && strings.EqualFold(s.Title, payload.Title) {
				return entity.FieldErrors{"title": "Ce service existe déjà"}
			}
		}

		return nil
	},
}

var modelSpec = simpleSpec[entity.Model]{
	key:      cache.Models,
	label:    "modèle",
	id:       func(m entity.Model) int64 { return m.ID },
	setID:    func(m *entity.Model, id int64) { m.ID = id },
	validate: entity.ValidateModel,
	duplicate: func(existing []entity.Model, payload entity.Model, excludeID int64) entity.FieldErrors {
		for _, m := range existing {
			if m.ID != excludeID &&
				strings.EqualFold(m.Brand, payload.Brand) &&
				strings.EqualFold(m.Reference, payload.Reference) &&
				strings.EqualFold(m.Storage, payload.Storage) {
				return entity.FieldErrors{"reference": "Ce modèle existe déjà"}
			}
		}

		return nil
	},
}

var userSpec = simpleSpec[entity.User]{
	key:      cache.Users,
	label:    "utilisateur",
	id:       func(u entity.User) int64 { return u.ID },
	setID:    func(u *entity.User, id int64) { u.ID = id },
	validate: entity.ValidateUser,
	duplicate: func(existing []entity.User, payload entity.User, excludeID int64) entity.FieldErrors {
		for _, u := range existing {
			if u.ID != excludeID && strings.EqualFold(u.Email, payload.Email) {
				return entity.FieldErrors{"email": "Cet email est déjà utilisé"}
			}
		}

		return nil
	},
}

func (o *Ops) CreateService(ctx context.Context, s entity.Service) (entity.Service, error) {
	return createSimple(ctx, o, serviceSpec, s, o.Client.CreateService)
}

func (o *Ops) UpdateService(ctx context.Context, prior, next entity.Service) (entity.Service, error) {
	return updateSimple(ctx, o, serviceSpec, prior, next, o.Client.UpdateService)
}

func (o *Ops) DeleteService(ctx context.Context, id int64) error {
	return deleteSimple(ctx, o, serviceSpec, id, o.Client.DeleteService)
}

func (o *Ops) CreateModel(ctx context.Context, m entity.Model) (entity.Model, error) {
	return createSimple(ctx, o, modelSpec, m, o.Client.CreateModel)
}

func (o *Ops) UpdateModel(ctx context.Context, prior, next entity.Model) (entity.Model, error) {
	return updateSimple(ctx, o, modelSpec, prior, next, o.Client.UpdateModel)
}

func (o *Ops) DeleteModel(ctx context.Context, id int64) error {
	return deleteSimple(ctx, o, modelSpec, id, o.Client.DeleteModel)
}

func (o *Ops) CreateUser(ctx context.Context, u entity.User) (entity.User, error) {
	return createSimple(ctx, o, userSpec, u, o.Client.CreateUser)
}

func (o *Ops) UpdateUser(ctx context.Context, prior, next entity.User) (entity.User, error) {
	return updateSimple(ctx, o, userSpec, prior, next, o.Client.UpdateUser)
}

func (o *Ops) DeleteUser(ctx context.Context, id int64) error {
	return deleteSimple(ctx, o, userSpec, id, o.Client.DeleteUser)
}
