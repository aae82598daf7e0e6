package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/service"
	"github.com/opsledger/lifecycle-service/internal/sla"
)

type fakeSweeps struct {
	overdueCalls int
	overdueErr   error
	scan         service.BreachScan
	scanErr      error
	window       time.Duration
	published    []service.Breach
}

func (f *fakeSweeps) SweepOverdue(context.Context) (int, error) {
	f.overdueCalls++
	return 0, f.overdueErr
}

func (f *fakeSweeps) ScanBreaches(_ context.Context, window time.Duration) (service.BreachScan, error) {
	f.window = window
	return f.scan, f.scanErr
}

func (f *fakeSweeps) PublishBreach(_ context.Context, b service.Breach) {
	f.published = append(f.published, b)
}

type failingDeduper struct{}

func (failingDeduper) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func breach(id string, kind sla.DeadlineKind) service.Breach {
	return service.Breach{Ticket: domain.Ticket{Meta: domain.Meta{ID: id}}, Deadline: kind}
}

func TestRunOnceAnnouncesEachBreachOnce(t *testing.T) {
	sweeps := &fakeSweeps{scan: service.BreachScan{Breaches: []service.Breach{
		breach("t-1", sla.DeadlineResponse),
		breach("t-1", sla.DeadlineResolution),
		breach("t-2", sla.DeadlineResponse),
	}}}
	s := NewSweeper(sweeps, nil, SweeperConfig{AtRiskWindow: time.Hour}, nil)

	assert.Equal(t, 3, s.RunOnce(context.Background()))
	assert.Equal(t, 0, s.RunOnce(context.Background()))
	assert.Len(t, sweeps.published, 3)
	assert.Equal(t, 2, sweeps.overdueCalls)
	assert.Equal(t, time.Hour, sweeps.window)
}

func TestRunOnceContinuesAfterOverdueFailure(t *testing.T) {
	sweeps := &fakeSweeps{
		overdueErr: errors.New("db down"),
		scan:       service.BreachScan{Breaches: []service.Breach{breach("t-1", sla.DeadlineResponse)}},
	}
	s := NewSweeper(sweeps, nil, SweeperConfig{}, nil)
	assert.Equal(t, 1, s.RunOnce(context.Background()))
}

func TestRunOnceAnnouncesWhenDedupFails(t *testing.T) {
	sweeps := &fakeSweeps{scan: service.BreachScan{Breaches: []service.Breach{breach("t-1", sla.DeadlineResponse)}}}
	s := NewSweeper(sweeps, failingDeduper{}, SweeperConfig{}, nil)
	assert.Equal(t, 1, s.RunOnce(context.Background()))
	assert.Equal(t, 1, s.RunOnce(context.Background()))
}

func TestRunOnceScanFailure(t *testing.T) {
	sweeps := &fakeSweeps{scanErr: errors.New("timeout")}
	s := NewSweeper(sweeps, nil, SweeperConfig{}, nil)
	assert.Zero(t, s.RunOnce(context.Background()))
	assert.Empty(t, sweeps.published)
}

func TestMemoryDeduperExpires(t *testing.T) {
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	d := NewMemoryDeduper(func() time.Time { return now })

	ok, err := d.Claim(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.Claim(context.Background(), "k", time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = d.Claim(context.Background(), "k", time.Minute)
	assert.True(t, ok)
}

func TestRunStopsOnCancel(t *testing.T) {
	sweeps := &fakeSweeps{}
	s := NewSweeper(sweeps, nil, SweeperConfig{Interval: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.Equal(t, 1, sweeps.overdueCalls)
}

func TestBreachKey(t *testing.T) {
	assert.Equal(t, "sla:breach:t-9:resolution", BreachKey(breach("t-9", sla.DeadlineResolution)))
}
