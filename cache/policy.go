package cache

import "github.com/kocayinsec/network-automation-sender/model"

// Cacheable reports whether method is eligible for response caching,
// mirroring the teacher's DefaultCacheCondition: only GET requests are
// cached by default since other methods are not safely replayable from
// a stored response.
func Cacheable(method model.Method) bool {
	return method == "" || method == model.MethodGet
}
