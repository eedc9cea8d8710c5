// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import "errors"

// センチネルエラー - リソースが見つからない場合
var (
	ErrSubstanceNotFound  = errors.New("substance not found")
	ErrSimulationNotFound = errors.New("simulation not found")
)

// ValidationError はバリデーションエラーを表す型
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError はValidationErrorを生成するヘルパー関数
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// newFieldError はフィールド名付きのValidationErrorを生成します。
func newFieldError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
