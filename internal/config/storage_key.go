package config

import (
	"fmt"
)

type StorageKeyStruct struct{}

func NewStorageKeyStruct() *StorageKeyStruct {
	return &StorageKeyStruct{}
}

// QuestionStatesKey returns the key holding a profile's serialized question states
func (r *StorageKeyStruct) QuestionStatesKey(profileID string) string {
	return fmt.Sprintf("profile:%s:question_states", profileID)
}

// ExamStartTimeKey returns the key holding a profile's exam start time (unix millis)
func (r *StorageKeyStruct) ExamStartTimeKey(profileID string) string {
	return fmt.Sprintf("profile:%s:exam_start_time", profileID)
}

// PositionKey returns the key holding a profile's current section/question position
func (r *StorageKeyStruct) PositionKey(profileID string) string {
	return fmt.Sprintf("profile:%s:position", profileID)
}

var StorageKey = NewStorageKeyStruct()
