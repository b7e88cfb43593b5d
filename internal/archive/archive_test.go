package archive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

type fakeRecorder struct {
	got      []GameResult
	err      error
	closeErr error
	closed   bool
}

func (f *fakeRecorder) Record(_ context.Context, res GameResult) error {
	f.got = append(f.got, res)
	return f.err
}

func (f *fakeRecorder) Close() error {
	f.closed = true
	return f.closeErr
}

type fakeConn struct {
	subject string
	data    []byte
	drained bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func sampleResult() GameResult {
	return GameResult{
		RoomCode:       "ABC123",
		TotalQuestions: 3,
		FinishedAt:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Standings:      []types.Standing{{Name: "Ana", Score: 2600}, {Name: "Ben", Score: 1000}},
	}
}

func TestMulti_RecordsEverywhereAndCombinesErrors(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	a := &fakeRecorder{err: errA}
	b := &fakeRecorder{err: errB}
	ok := &fakeRecorder{}

	err := Multi{a, ok, b}.Record(context.Background(), sampleResult())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Len(t, ok.got, 1)

	a.closeErr = errA
	err = Multi{a, ok}.Close()
	assert.ErrorIs(t, err, errA)
	assert.True(t, ok.closed)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), sampleResult()))
	assert.NoError(t, r.Close())
}

func TestNATSPublisher_PublishesJSON(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, "")

	require.NoError(t, p.Record(context.Background(), sampleResult()))
	assert.Equal(t, DefaultSubject, conn.subject)

	var got GameResult
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, sampleResult(), got)

	require.NoError(t, p.Close())
	assert.True(t, conn.drained)
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, "games")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Record(ctx, sampleResult()), context.Canceled)
	assert.Nil(t, conn.data)
}

func TestToRecord_Positions(t *testing.T) {
	rec := toRecord(sampleResult())
	assert.Equal(t, "ABC123", rec.RoomCode)
	require.Len(t, rec.Standings, 2)
	assert.Equal(t, 1, rec.Standings[0].Position)
	assert.Equal(t, "Ben", rec.Standings[1].Name)
	assert.Equal(t, 2, rec.Standings[1].Position)
}
