package oracle

import "errors"

var (
	// ErrServiceUnavailable indicates the inference service is unreachable
	ErrServiceUnavailable = errors.New("oracle service unavailable")

	// ErrInvalidPrediction indicates the inference response is invalid
	ErrInvalidPrediction = errors.New("invalid prediction response")
)
