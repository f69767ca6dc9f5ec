package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProjectionParams_Validate(t *testing.T) {
	for _, m := range []int{1, 6, 7, 120} {
		assert.NoError(t, ProjectionParams{Months: m}.Validate(), "months=%d", m)
	}
	for _, m := range []int{-6, 0, 121} {
		err := ProjectionParams{Months: m}.Validate()
		var validation *ErrValidation
		assert.True(t, errors.As(err, &validation), "months=%d", m)
	}
}

func TestDailyProjection_HasActivity(t *testing.T) {
	assert.False(t, DailyProjection{Balance: 100}.HasActivity())
	assert.True(t, DailyProjection{Income: 1}.HasActivity())
	assert.True(t, DailyProjection{Expense: 1}.HasActivity())
	assert.True(t, DailyProjection{Income: 5, Expense: 5, Balance: 100}.HasActivity())
}

func TestSession(t *testing.T) {
	now := time.Now()
	s := NewAuthenticatedSession("tok", &User{ID: "u"}, now.Add(time.Minute))
	assert.True(t, s.Authenticated())
	assert.Equal(t, "tok", s.Token())
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))

	anon := AnonymousSession()
	assert.False(t, anon.Authenticated())
	assert.Empty(t, anon.Token())
	assert.False(t, anon.Expired(now))

	var missing *Session
	assert.False(t, missing.Authenticated())
}
