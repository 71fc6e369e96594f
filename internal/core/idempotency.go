package core

// idempotency.go implements the spec §3 idempotency-key memoization: a
// (scope, key) pair maps to the exact result a prior call with that key
// produced, so a retried request never re-executes the mutation.

func idempotencyMapKey(scope IdempotencyScope, key string) string {
	return string(scope) + "|" + key
}

// idempotentLookup returns a previously stored result for (scope, key), if
// any. An empty key never matches — callers treat a blank idempotency key
// as "no memoization requested".
func (c *Core) idempotentLookup(scope IdempotencyScope, key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	c.idemMu.Lock()
	defer c.idemMu.Unlock()
	v, ok := c.idempotency[idempotencyMapKey(scope, key)]
	return v, ok
}

// idempotentStore records result under (scope, key) for future replay.
func (c *Core) idempotentStore(scope IdempotencyScope, key string, result any) {
	if key == "" {
		return
	}
	c.idemMu.Lock()
	defer c.idemMu.Unlock()
	c.idempotency[idempotencyMapKey(scope, key)] = result
}
