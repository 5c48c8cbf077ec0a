package cache

// Cached wraps fn with a get-or-compute-and-put around (namespace, key),
// the explicit Go rendition of the original's @cached(namespace, key_func,
// ttl) decorator: there is no language-level decorator, so every cached
// store operation gets its own small wrapper like this one instead of a
// shared annotation.
func Cached[T any](c *Cache, namespace, key string, fn func() (T, error)) (T, error) {
	if c == nil {
		return fn()
	}
	if v, ok := c.Get(namespace, key); ok {
		return v.(T), nil
	}
	v, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Put(namespace, key, v)
	return v, nil
}
