package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/lifecycle-service/internal/clock"
	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/runner"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

type fakeRunner struct {
	mu      sync.Mutex
	clock   *clock.Manual
	took    time.Duration
	result  runner.Result
	err     error
	block   bool
	calls   int
	lastCtx context.Context
	// during runs while the execution is in flight
	during func()
}

func (r *fakeRunner) Trigger(ctx context.Context, externalID string, input map[string]any) (runner.Result, error) {
	r.mu.Lock()
	r.calls++
	r.lastCtx = ctx
	block, res, err, took, during := r.block, r.result, r.err, r.took, r.during
	r.mu.Unlock()

	if during != nil {
		during()
	}
	if block {
		<-ctx.Done()
		return runner.Result{}, ctx.Err()
	}
	r.clock.Advance(took)
	if res.Status == "" && err == nil {
		res = runner.Result{ExecutionID: "n8n-" + externalID, Status: domain.ExecutionStatusSuccess, Output: input}
	}
	return res, err
}

func activeWorkflow(t *testing.T, f *fixture) *domain.WorkflowInstance {
	t.Helper()
	return f.createIn(t, domain.KindWorkflow, "active").(*domain.WorkflowInstance)
}

func assertCounters(t *testing.T, w *domain.WorkflowInstance) {
	t.Helper()
	assert.LessOrEqual(t, w.SuccessCount+w.FailureCount, w.ExecutionCount)
}

func TestTriggerExecutionSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wf := activeWorkflow(t, f)
	f.runner.took = 1500 * time.Millisecond

	res, err := f.svc.TriggerExecution(ctx, acme, wf.ID, TriggerInput{Input: map[string]any{"lead": "acme"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Workflow.ExecutionCount)
	assert.Equal(t, int64(1), res.Workflow.SuccessCount)
	assert.Equal(t, int64(0), res.Workflow.FailureCount)
	require.NotNil(t, res.Workflow.LastExecutedAt)
	assert.Equal(t, t0.Add(1500*time.Millisecond), *res.Workflow.LastExecutedAt)
	assert.Equal(t, domain.ExecutionStatusSuccess, res.Execution.Status)
	assert.Equal(t, "n8n-wf-1", res.Execution.ExternalExecutionID)
	assert.Equal(t, int64(1500), res.Execution.DurationMs)
	assert.Equal(t, 1.0, res.Workflow.SuccessRate())

	executions, err := f.svc.ListExecutions(ctx, acme, wf.ID, 10)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, res.Execution.ID, executions[0].ID)
}

func TestTriggerExecutionWorkflowFailure(t *testing.T) {
	f := newFixture(t)
	wf := activeWorkflow(t, f)
	f.runner.result = runner.Result{ExecutionID: "n8n-9", Status: domain.ExecutionStatusFailed, Error: "node crashed"}

	res, err := f.svc.TriggerExecution(context.Background(), acme, wf.ID, TriggerInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Workflow.FailureCount)
	assert.Equal(t, "node crashed", res.Execution.Error)
	assert.Equal(t, 0.0, res.Workflow.SuccessRate())
}

func TestTriggerExecutionTimeoutRecordsFailure(t *testing.T) {
	f := newFixture(t)
	wf := activeWorkflow(t, f)
	f.runner.block = true

	res, err := f.svc.TriggerExecution(context.Background(), acme, wf.ID, TriggerInput{Timeout: 20 * time.Millisecond})
	requireCode(t, err, apperrors.CodeExternalTimeout)
	require.NotNil(t, res)
	assert.Equal(t, int64(1), res.Workflow.ExecutionCount)
	assert.Equal(t, int64(1), res.Workflow.FailureCount)
	assert.Equal(t, domain.ExecutionStatusFailed, res.Execution.Status)
	assertCounters(t, res.Workflow)

	_, hasDeadline := f.runner.lastCtx.Deadline()
	assert.True(t, hasDeadline)
}

func TestTriggerExecutionRunnerErrorRecordsFailure(t *testing.T) {
	f := newFixture(t)
	wf := activeWorkflow(t, f)
	f.runner.err = errors.New("connection refused")

	res, err := f.svc.TriggerExecution(context.Background(), acme, wf.ID, TriggerInput{})
	requireCode(t, err, apperrors.CodeExternalError)
	assert.Equal(t, int64(1), res.Workflow.FailureCount)
	assert.Contains(t, res.Execution.Error, "connection refused")
}

func TestTriggerExecutionNotExecutable(t *testing.T) {
	for _, path := range [][]string{nil, {"active", "paused"}, {"active", "deleted"}, {"active", "error"}} {
		f := newFixture(t)
		wf := f.createIn(t, domain.KindWorkflow, path...)

		_, err := f.svc.TriggerExecution(context.Background(), acme, wf.Base().ID, TriggerInput{})
		requireCode(t, err, apperrors.CodeNotExecutable)
		assert.Equal(t, 0, f.runner.calls)

		stored, err := f.svc.GetWorkflow(context.Background(), acme, wf.Base().ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stored.ExecutionCount)
	}
}

func TestTriggerExecutionCrossTenant(t *testing.T) {
	f := newFixture(t)
	wf := activeWorkflow(t, f)
	_, err := f.svc.TriggerExecution(context.Background(), globex, wf.ID, TriggerInput{})
	requireCode(t, err, apperrors.CodeForbidden)
	assert.Equal(t, 0, f.runner.calls)
}

func TestConcurrentExecutionsKeepCountersConsistent(t *testing.T) {
	f := newFixture(t)
	wf := activeWorkflow(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.svc.TriggerExecution(context.Background(), acme, wf.ID, TriggerInput{})
		}(i)
	}
	wg.Wait()

	stored, err := f.svc.GetWorkflow(context.Background(), acme, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), stored.ExecutionCount)
	assert.Equal(t, int64(20), stored.SuccessCount+stored.FailureCount)
	assertCounters(t, stored)
}

func TestWorkflowStatusChangeKeepsCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wf := activeWorkflow(t, f)
	_, err := f.svc.TriggerExecution(ctx, acme, wf.ID, TriggerInput{})
	require.NoError(t, err)

	paused, err := f.svc.ChangeWorkflowStatus(ctx, acme, wf.ID, changeTo("paused"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), paused.ExecutionCount)

	deleted, err := f.svc.ChangeWorkflowStatus(ctx, acme, wf.ID, changeTo("deleted"))
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowStatusDeleted, deleted.Status)
}

func TestTriggerExecutionPausedMidRunKeepsCounters(t *testing.T) {
	for _, target := range []string{"paused", "deleted"} {
		t.Run(target, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			wf := activeWorkflow(t, f)
			f.runner.during = func() {
				_, err := f.svc.ChangeWorkflowStatus(ctx, acme, wf.ID, changeTo(target))
				require.NoError(t, err)
			}

			res, err := f.svc.TriggerExecution(ctx, acme, wf.ID, TriggerInput{})
			requireCode(t, err, apperrors.CodeNotExecutable)
			require.NotNil(t, res)
			assert.Equal(t, domain.ExecutionStatusSuccess, res.Execution.Status)

			stored, err := f.svc.GetWorkflow(ctx, acme, wf.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.WorkflowStatus(target), stored.Status)
			assert.Equal(t, int64(0), stored.ExecutionCount)
			assert.Equal(t, int64(0), stored.SuccessCount)
			assert.Equal(t, int64(0), stored.FailureCount)
			assert.Nil(t, stored.LastExecutedAt)

			executions, err := f.svc.ListExecutions(ctx, acme, wf.ID, 10)
			require.NoError(t, err)
			assert.Len(t, executions, 1)
		})
	}
}
