package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CurriculumDocumentKey returns the cache key for a stored curriculum document
func (r *CacheKeyStruct) CurriculumDocumentKey(curriculumID string) string {
	return fmt.Sprintf("curriculum:%s:document", curriculumID)
}

// ImportJobKey returns the cache key for an asynchronous import's status hash
func (r *CacheKeyStruct) ImportJobKey(jobID string) string {
	return fmt.Sprintf("curriculum:import:%s", jobID)
}

// ImportPayloadKey returns the cache key holding the raw document of a queued import
func (r *CacheKeyStruct) ImportPayloadKey(jobID string) string {
	return fmt.Sprintf("curriculum:import:%s:payload", jobID)
}

var CacheKey = NewCacheKeyStruct()
