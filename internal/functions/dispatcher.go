package functions

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"ani-canvas-backend/internal/models"
)

// VersionError is fatal for an invocation: the caller declared a version tag
// that is missing or unmapped. The unresolved tag is carried in the message.
type VersionError struct {
	Tag string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("Version Error : %s", e.Tag)
}

// Handler is one versioned implementation of a callable function. It receives
// the original request payload and auth context and its result is returned to
// the caller unmodified.
type Handler func(ctx context.Context, req models.FunctionRequest, auth *models.AuthContext) (*models.FunctionResponse, error)

type kvStore interface {
	Get(path string, dest interface{}) error
	ListPrefix(prefix string) (map[string]json.RawMessage, error)
}

// Dispatcher resolves a logical function name to a versioned handler. The
// version table is an explicit object built once at startup; a row published
// at {sharePath}/FUNCTION_V in the realtime store overrides it, and a table
// carried in the request payload overrides both.
type Dispatcher struct {
	versions  map[string]string
	handlers  map[string]map[string]Handler
	kv        kvStore
	sharePath string
	logger    *zap.Logger
}

func NewDispatcher(versions map[string]string, kv kvStore, sharePath string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		versions:  versions,
		handlers:  make(map[string]map[string]Handler),
		kv:        kv,
		sharePath: sharePath,
		logger:    logger,
	}
}

// Register maps one (name, version tag) pair to a handler.
func (d *Dispatcher) Register(name, tag string, handler Handler) {
	if d.handlers[name] == nil {
		d.handlers[name] = make(map[string]Handler)
	}
	d.handlers[name][tag] = handler
}

// resolveTag picks the version tag for name: request payload first, then the
// published row, then the startup table.
func (d *Dispatcher) resolveTag(name string, requestVersions map[string]string) string {
	if tag, ok := requestVersions[name]; ok {
		return tag
	}
	if d.kv != nil {
		published := make(map[string]string)
		if err := d.kv.Get(d.sharePath+"/FUNCTION_V", &published); err == nil {
			if tag, ok := published[name]; ok {
				return tag
			}
		}
	}
	return d.versions[name]
}

// Resolve returns the handler the caller's declared version maps to, or a
// VersionError carrying the unresolved tag.
func (d *Dispatcher) Resolve(name string, requestVersions map[string]string) (Handler, error) {
	tag := d.resolveTag(name, requestVersions)

	handler, ok := d.handlers[name][tag]
	if tag == "" || !ok {
		return nil, &VersionError{Tag: tag}
	}
	return handler, nil
}

// Invoke dispatches the request to the resolved handler and returns its
// result unmodified.
func (d *Dispatcher) Invoke(ctx context.Context, name string, req models.FunctionRequest, auth *models.AuthContext) (*models.FunctionResponse, error) {
	handler, err := d.Resolve(name, req.Env.FunctionVersions)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("dispatching function",
		zap.String("name", name))
	return handler(ctx, req, auth)
}
