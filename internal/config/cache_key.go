package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ResultKey returns the cache key for a finished exam result
func (r *CacheKeyStruct) ResultKey(resultID string) string {
	return fmt.Sprintf("result:%s", resultID)
}

// ExamLatestResultKey returns the sorted set holding the newest result ID of an exam
func (r *CacheKeyStruct) ExamLatestResultKey(examID string) string {
	return fmt.Sprintf("exam:%s:latest_result", examID)
}

var CacheKey = NewCacheKeyStruct()
