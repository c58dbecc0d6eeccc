package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type answerPayload struct {
	QuestionID int    `json:"question_id" binding:"required"`
	Option     string `json:"option" binding:"required,option_label"`
}

func bindBody(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var dst answerPayload
	return Bind(c, &dst)
}

func TestIsOptionLabel(t *testing.T) {
	assert.True(t, IsOptionLabel("A"))
	assert.True(t, IsOptionLabel("B2"))
	assert.False(t, IsOptionLabel(""))
	assert.False(t, IsOptionLabel("A B"))
	assert.False(t, IsOptionLabel("A;"))
}

func TestBind_Valid(t *testing.T) {
	assert.Nil(t, bindBody(t, `{"question_id": 3, "option": "C"}`))
}

func TestBind_FieldErrorsUseJSONNames(t *testing.T) {
	fields := bindBody(t, `{"option": "not a label"}`)

	assert.Contains(t, fields, "question_id")
	assert.Equal(t, "option must be a single option label without spaces", fields["option"])
}

func TestBind_SyntaxErrorIsDetail(t *testing.T) {
	fields := bindBody(t, `{"question_id":`)

	assert.Contains(t, fields, "detail")
}
