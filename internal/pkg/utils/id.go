package utils

import "github.com/google/uuid"

func GenerateAssetID() string {
	return uuid.New().String()
}

func GenerateRequestID() string {
	return uuid.New().String()
}
