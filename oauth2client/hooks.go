package oauth2client

import "sync"

// PreFetchHook runs immediately before a token refresh attempt begins.
type PreFetchHook func(config *ClientConfig, authorization Authorization)

// PostFetchHook runs after a refresh attempt completes, with the resulting
// token on success or the failure on error (never both).
type PostFetchHook func(config *ClientConfig, authorization Authorization, token Token, err error)

// HookRegistry is an append-only, process-lifetime registry of refresh
// hooks. Construct one at application startup and share it across managers;
// there is no unregister. Hooks run in registration order, and a panicking
// hook never disturbs the refresh pipeline.
type HookRegistry struct {
	mu   sync.RWMutex
	pre  []PreFetchHook
	post []PostFetchHook
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{}
}

// RegisterPreFetch appends a pre-fetch hook.
func (r *HookRegistry) RegisterPreFetch(hook PreFetchHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pre = append(r.pre, hook)
}

// RegisterPostFetch appends a post-fetch hook.
func (r *HookRegistry) RegisterPostFetch(hook PostFetchHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.post = append(r.post, hook)
}

// notifyPre invokes the pre-fetch hooks in registration order.
// A nil registry is a no-op.
func (r *HookRegistry) notifyPre(logger Logger, config *ClientConfig, authorization Authorization) {
	if r == nil {
		return
	}

	r.mu.RLock()
	hooks := r.pre
	r.mu.RUnlock()

	for _, hook := range hooks {
		runHook(logger, func() { hook(config, authorization) })
	}
}

// notifyPost invokes the post-fetch hooks in registration order.
func (r *HookRegistry) notifyPost(logger Logger, config *ClientConfig, authorization Authorization, token Token, err error) {
	if r == nil {
		return
	}

	r.mu.RLock()
	hooks := r.post
	r.mu.RUnlock()

	for _, hook := range hooks {
		runHook(logger, func() { hook(config, authorization, token, err) })
	}
}

// runHook isolates a single hook invocation from the refresh pipeline.
func runHook(logger Logger, fn func()) {
	defer func() {
		if rec := recover(); rec != nil && logger != nil {
			logger.Printf("oauth2client: fetch hook panicked: %v", rec)
		}
	}()
	fn()
}
