package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizStatisticsKey returns the cache key for a quiz's aggregate statistics
func (r *CacheKeyStruct) QuizStatisticsKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:statistics", quizID)
}

// ClassPerformanceKey returns the cache key for a course/semester performance rollup
func (r *CacheKeyStruct) ClassPerformanceKey(courseID, semesterID int) string {
	return fmt.Sprintf("course:%d:semester:%d:performance", courseID, semesterID)
}

var CacheKey = NewCacheKeyStruct()
