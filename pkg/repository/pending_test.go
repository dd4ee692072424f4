package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitasync/pkg/repository"
)

func TestStartDeliversResultWithoutBlockingCaller(testInstance *testing.T) {
	release := make(chan struct{})
	pending := repository.Start(context.Background(), func(context.Context) (int, error) {
		<-release
		return 42, nil
	})

	select {
	case <-pending.Done():
		testInstance.Fatal("operation finished before it was released")
	default:
	}

	close(release)
	value, waitError := pending.Wait(context.Background())
	require.NoError(testInstance, waitError)
	require.Equal(testInstance, 42, value)
}

func TestStartActionPropagatesError(testInstance *testing.T) {
	operationError := errors.New("boom")
	pending := repository.StartAction(context.Background(), func(context.Context) error {
		return operationError
	})

	_, waitError := pending.Wait(context.Background())
	require.ErrorIs(testInstance, waitError, operationError)
}

func TestWaitReturnsWhenWaitContextEnds(testInstance *testing.T) {
	release := make(chan struct{})
	defer close(release)
	pending := repository.Start(context.Background(), func(context.Context) (string, error) {
		<-release
		return "late", nil
	})

	waitContext, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	value, waitError := pending.Wait(waitContext)
	require.ErrorIs(testInstance, waitError, context.DeadlineExceeded)
	require.Empty(testInstance, value)
}

func TestStartPassesContextToOperation(testInstance *testing.T) {
	operationContext, cancel := context.WithCancel(context.Background())
	pending := repository.StartAction(operationContext, func(executionContext context.Context) error {
		<-executionContext.Done()
		return executionContext.Err()
	})

	cancel()
	_, waitError := pending.Wait(context.Background())
	require.ErrorIs(testInstance, waitError, context.Canceled)
}
