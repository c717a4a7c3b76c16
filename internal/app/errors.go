package service

import (
	"errors"
	"fmt"
)

// Sentinel kinds returned by the service.
var (
	ErrInvalidUpload = errors.New("invalid upload")
	ErrProcessing    = errors.New("upload processing failed")
	ErrNotFound      = errors.New("not found")
	ErrInvalidPage   = errors.New("invalid page")
	ErrNotConfigured = errors.New("service not configured")
)

// User-facing messages.
const (
	MsgUploadDone    = "데이터 업로드가 완료되었습니다."
	MsgNoFile        = "파일이 제공되지 않았습니다."
	MsgEmptyFile     = "엑셀 파일이 비어있습니다."
	MsgDuplicateFile = "이미 선택된 파일입니다."
	MsgUnknownKind   = "지원하지 않는 업로드 유형입니다."
	MsgInvalidPage   = "잘못된 페이지입니다."
	MsgNotFound      = "요청한 데이터를 찾을 수 없습니다."

	msgFileTooLarge = "파일 크기가 %dMB를 초과합니다."
	msgTooManyFiles = "한 번에 최대 %d개 파일까지 업로드할 수 있습니다."
	msgProcessing   = "파일 처리 중 오류가 발생했습니다: %s"
	msgBatchSummary = "%d개 파일 성공, %d개 파일 실패. 총 %d개 데이터 저장."
)

// UploadError carries the message shown to the uploader. Kind is
// ErrInvalidUpload for problems with the file itself and ErrProcessing
// for failures after the file was accepted.
type UploadError struct {
	Kind    error
	Message string
	Details []string
}

func (e *UploadError) Error() string { return e.Message }

func (e *UploadError) Unwrap() error { return e.Kind }

func invalid(msg string, details ...string) *UploadError {
	return &UploadError{Kind: ErrInvalidUpload, Message: msg, Details: details}
}

func processing(cause error) *UploadError {
	return &UploadError{Kind: ErrProcessing, Message: fmt.Sprintf(msgProcessing, cause)}
}
