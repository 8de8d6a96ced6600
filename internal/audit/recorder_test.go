package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lokie-ree/aida-sub001/internal/requestctx"
)

type failingAppender struct{ err error }

func (f failingAppender) Append(context.Context, *Entry) error { return f.err }

func TestRecorderRecord(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("CST", -6*3600))
	r := NewRecorder(s, WithClock(func() time.Time { return fixed }))

	ctx := requestctx.SetIPAddress(context.Background(), "203.0.113.7")
	e, err := r.Record(ctx, "u1", ActionVoiceQuery, ResourceDistrictPolicy, QueryDetails("What is the bullying policy?"))
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "Query: What is the bullying policy?", e.Details)
	assert.Equal(t, "203.0.113.7", e.IPAddress)
	assert.Equal(t, time.UTC, e.Timestamp.Location())
	assert.True(t, fixed.Equal(e.Timestamp))

	stored, err := s.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Details, stored.Details)
	ok, err := s.Verify(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecorderRequiresUser(t *testing.T) {
	r := NewRecorder(newTestStore(t))
	e, err := r.Record(context.Background(), "", ActionVoiceQuery, ResourceGeneralQuery, "Query: hi")
	assert.Nil(t, e)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRecorderUnknownIP(t *testing.T) {
	r := NewRecorder(newTestStore(t))
	e, err := r.Record(context.Background(), "u1", ActionVoiceQuery, ResourceGeneralQuery, "Query: hi")
	require.NoError(t, err)
	assert.Equal(t, UnknownIP, e.IPAddress)
}

func TestRecorderStoreFailure(t *testing.T) {
	r := NewRecorder(failingAppender{err: errors.New("disk full")})
	_, err := r.Record(context.Background(), "u1", ActionVoiceQuery, ResourceGeneralQuery, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestTruncateDetails(t *testing.T) {
	exact := strings.Repeat("a", MaxDetailsRunes)
	assert.Equal(t, exact, TruncateDetails(exact))
	assert.Equal(t, "short", TruncateDetails("short"))

	long := strings.Repeat("b", MaxDetailsRunes+1)
	assert.Equal(t, strings.Repeat("b", MaxDetailsRunes)+TruncationMarker, TruncateDetails(long))

	accents := strings.Repeat("é", MaxDetailsRunes+5)
	got := TruncateDetails(accents)
	assert.Equal(t, strings.Repeat("é", MaxDetailsRunes)+TruncationMarker, got)
}

func TestResourceFor(t *testing.T) {
	assert.Equal(t, ResourceDistrictPolicy, ResourceFor(true))
	assert.Equal(t, ResourceGeneralQuery, ResourceFor(false))
}
