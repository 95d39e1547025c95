package internal

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/exdock/exdock"
)

// Operation names consumed by the routers. Each maps a typed request onto one
// component call and produces a typed success or failure reply.
const (
	OpAttributeDefine = "attribute.define"
	OpAttributeRemove = "attribute.remove"
	OpValueSet        = "value.set"
	OpValueGet        = "value.get"
	OpValueResolve    = "value.resolve"
	OpValueDelete     = "value.delete"
	OpOptionAdd       = "option.add"
	OpOptionList      = "option.list"
	OpOptionRemove    = "option.remove"
	OpCacheMarkDirty  = "cache.markDirty"
	OpCacheIsDirty    = "cache.isDirty"
	OpCacheRequest    = "cache.requestData"

	OpAccountGetAllUsers  = "account.getAllUsers"
	OpAccountGetUserByID  = "account.getUserById"
	OpAccountCreateUser   = "account.createUser"
	OpAccountUpdateUser   = "account.updateUser"
	OpAccountDeleteUser   = "account.deleteUser"
	OpAccountGetFullUser  = "account.getFullUserByUserId"
	OpAccountFullByEmail  = "account.getFullUserByEmail"
	OpAccountGetPerms     = "account.getBackendPermissionsByUserId"
	OpAccountCreatePerms  = "account.createBackendPermissions"
	OpAccountUpdatePerms  = "account.updateBackendPermissions"
	OpAccountDeletePerms  = "account.deleteBackendPermissions"
)

// Ack is the empty success reply of write operations without a payload.
type Ack struct{}

// Handler executes one named operation.
type Handler func(ctx context.Context, body any) (any, error)

// Dispatcher maps operation names onto the catalog components. It is the
// contract boundary the routers call into; transports stay outside.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher wires the full operation table. Accounts may be nil when the
// account module is not deployed; its operations are then absent.
func NewDispatcher(
	registry exdock.AttributeRegistry,
	values exdock.ValueStore,
	options exdock.OptionStore,
	resolver exdock.Resolver,
	flags exdock.FlagStore,
	cache *CacheService,
	accounts exdock.AccountRepository,
) *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]Handler)}

	d.register(OpAttributeDefine, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.DefineAttributeRequest](body)
		if err != nil {
			return nil, err
		}
		return registry.Define(ctx, req.Definition)
	})
	d.register(OpAttributeRemove, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.RemoveAttributeRequest](body)
		if err != nil {
			return nil, err
		}
		if req.Cascade {
			return Ack{}, registry.RemoveCascade(ctx, req.Key)
		}
		return Ack{}, registry.Remove(ctx, req.Key)
	})

	d.register(OpValueSet, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.SetValueRequest](body)
		if err != nil {
			return nil, err
		}
		return Ack{}, values.SetValue(ctx, req.ProductID, req.Scope, req.AttributeKey, req.Value)
	})
	d.register(OpValueGet, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.GetValueRequest](body)
		if err != nil {
			return nil, err
		}
		return values.GetValue(ctx, req.ProductID, req.Scope, req.AttributeKey)
	})
	d.register(OpValueResolve, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.ResolveValueRequest](body)
		if err != nil {
			return nil, err
		}
		return resolver.Resolve(ctx, req.ProductID, req.AttributeKey, req.StoreViewID)
	})
	d.register(OpValueDelete, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.DeleteValueRequest](body)
		if err != nil {
			return nil, err
		}
		return Ack{}, values.DeleteValue(ctx, req.ProductID, req.Scope, req.AttributeKey)
	})

	d.register(OpOptionAdd, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.AddOptionRequest](body)
		if err != nil {
			return nil, err
		}
		return options.AddOption(ctx, req.AttributeKey, req.Value)
	})
	d.register(OpOptionList, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.ListOptionsRequest](body)
		if err != nil {
			return nil, err
		}
		return options.ListOptions(ctx, req.AttributeKey)
	})
	d.register(OpOptionRemove, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.RemoveOptionRequest](body)
		if err != nil {
			return nil, err
		}
		return Ack{}, options.RemoveOption(ctx, req.AttributeKey, req.OptionID)
	})

	d.register(OpCacheMarkDirty, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.CacheDomainRequest](body)
		if err != nil {
			return nil, err
		}
		return Ack{}, flags.MarkDirty(ctx, req.Domain)
	})
	d.register(OpCacheIsDirty, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.CacheDomainRequest](body)
		if err != nil {
			return nil, err
		}
		return flags.IsDirty(ctx, req.Domain)
	})
	if cache != nil {
		d.register(OpCacheRequest, func(ctx context.Context, body any) (any, error) {
			domains, err := requestAs[string](body)
			if err != nil {
				return nil, err
			}
			return cache.FetchMany(ctx, domains)
		})
	}

	if accounts != nil {
		d.registerAccountOps(accounts)
	}
	return d
}

func (d *Dispatcher) registerAccountOps(accounts exdock.AccountRepository) {
	d.register(OpAccountGetAllUsers, func(ctx context.Context, _ any) (any, error) {
		return accounts.GetAllUsers(ctx)
	})
	d.register(OpAccountGetUserByID, func(ctx context.Context, body any) (any, error) {
		userID, err := requestAs[int64](body)
		if err != nil {
			return nil, err
		}
		return accounts.GetUserByID(ctx, userID)
	})
	d.register(OpAccountCreateUser, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.UserCreation](body)
		if err != nil {
			return nil, err
		}
		return accounts.CreateUser(ctx, req)
	})
	d.register(OpAccountUpdateUser, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.User](body)
		if err != nil {
			return nil, err
		}
		return accounts.UpdateUser(ctx, req)
	})
	d.register(OpAccountDeleteUser, func(ctx context.Context, body any) (any, error) {
		userID, err := requestAs[int64](body)
		if err != nil {
			return nil, err
		}
		return Ack{}, accounts.DeleteUser(ctx, userID)
	})
	d.register(OpAccountGetFullUser, func(ctx context.Context, body any) (any, error) {
		userID, err := requestAs[int64](body)
		if err != nil {
			return nil, err
		}
		return accounts.GetFullUserByID(ctx, userID)
	})
	d.register(OpAccountFullByEmail, func(ctx context.Context, body any) (any, error) {
		email, err := requestAs[string](body)
		if err != nil {
			return nil, err
		}
		return accounts.GetFullUserByEmail(ctx, email)
	})
	d.register(OpAccountGetPerms, func(ctx context.Context, body any) (any, error) {
		userID, err := requestAs[int64](body)
		if err != nil {
			return nil, err
		}
		return accounts.GetPermissionsByUserID(ctx, userID)
	})
	d.register(OpAccountCreatePerms, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.BackendPermissions](body)
		if err != nil {
			return nil, err
		}
		return accounts.CreatePermissions(ctx, req)
	})
	d.register(OpAccountUpdatePerms, func(ctx context.Context, body any) (any, error) {
		req, err := requestAs[exdock.BackendPermissions](body)
		if err != nil {
			return nil, err
		}
		return accounts.UpdatePermissions(ctx, req)
	})
	d.register(OpAccountDeletePerms, func(ctx context.Context, body any) (any, error) {
		userID, err := requestAs[int64](body)
		if err != nil {
			return nil, err
		}
		return Ack{}, accounts.DeletePermissions(ctx, userID)
	})
}

func (d *Dispatcher) register(op string, handler Handler) {
	d.handlers[op] = handler
}

// Call executes a named operation synchronously. Failures always carry a
// stable error code; no operation fails silently.
func (d *Dispatcher) Call(ctx context.Context, op string, body any) (any, error) {
	handler, ok := d.handlers[op]
	if !ok {
		dispatcherRequests.WithLabelValues(op, exdock.ErrCodeUnknownOperation).Inc()
		return nil, exdock.NewUnknownOperationError(op)
	}
	reply, err := handler(ctx, body)
	if err != nil {
		code := exdock.CodeOf(err)
		if code == "" {
			code = exdock.ErrCodeStoreFailure
		}
		dispatcherRequests.WithLabelValues(op, code).Inc()
		zap.S().Debugw("operation failed", "operation", op, "code", code, "error", err)
		return nil, err
	}
	dispatcherRequests.WithLabelValues(op, "ok").Inc()
	return reply, nil
}

// Send executes a named operation asynchronously and delivers exactly one
// reply on the returned channel. There is no cancellation beyond ctx and no
// internal retry; a failed call surfaces as the reply's Err.
func (d *Dispatcher) Send(ctx context.Context, op string, body any) <-chan exdock.Reply {
	replies := make(chan exdock.Reply, 1)
	id := uuid.New()
	go func() {
		defer close(replies)
		result, err := d.Call(ctx, op, body)
		replies <- exdock.Reply{ID: id, Body: result, Err: err}
	}()
	return replies
}

// Operations lists the registered operation names, sorted.
func (d *Dispatcher) Operations() []string {
	ops := MapKeys(d.handlers)
	sort.Strings(ops)
	return ops
}

// requestAs narrows the dispatch body to the handler's request type.
func requestAs[T any](body any) (T, error) {
	req, ok := body.(T)
	if !ok {
		var zero T
		return zero, exdock.NewBadRequestError("request body has the wrong type for this operation")
	}
	return req, nil
}

var _ exdock.Dispatcher = (*Dispatcher)(nil)
