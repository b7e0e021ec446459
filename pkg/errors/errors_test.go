package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewSetsHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{code: CodeInvalidParam, want: http.StatusBadRequest},
		{code: CodeProjectNotFound, want: http.StatusNotFound},
		{code: CodeKnowledgeNotFound, want: http.StatusNotFound},
		{code: CodeGenerationConflict, want: http.StatusConflict},
		{code: CodeTooManyRequests, want: http.StatusTooManyRequests},
		{code: CodeServiceUnavailable, want: http.StatusServiceUnavailable},
		{code: CodeLLMCallFailed, want: http.StatusInternalServerError},
		{code: CodeDatabaseError, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "msg").HTTPStatus; got != tt.want {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorMessage(t *testing.T) {
	e := New(CodeInvalidParam, "参数不合法")
	if got := e.Error(); got != "[1001] 参数不合法" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := Wrap(fmt.Errorf("boom"), CodeDatabaseError, "查询失败")
	if got := wrapped.Error(); got != "[4001] 查询失败: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	e := Wrap(cause, CodeDatabaseError, "查询失败")
	if !stderrors.Is(e, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
}

func TestAsAppError(t *testing.T) {
	app := New(CodeChapterNotFound, "章节不存在")
	if got := AsAppError(app); got != app {
		t.Error("AsAppError should return the same AppError")
	}

	plain := fmt.Errorf("boom")
	got := AsAppError(plain)
	if got.Code != CodeUnknown {
		t.Errorf("Code = %v, want CodeUnknown", got.Code)
	}
	if !stderrors.Is(got, plain) {
		t.Error("converted error should keep the cause")
	}
}

func TestIsAppError(t *testing.T) {
	if !IsAppError(ErrGenerationConflict) {
		t.Error("predefined error should be an AppError")
	}
	if IsAppError(fmt.Errorf("boom")) {
		t.Error("plain error should not be an AppError")
	}
}

func TestWithDetail(t *testing.T) {
	e := New(CodeInvalidParam, "参数不合法").WithDetail("num_chapters 超出范围")
	if e.Detail != "num_chapters 超出范围" {
		t.Errorf("Detail = %q", e.Detail)
	}
}
