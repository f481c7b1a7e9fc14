package amqp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notice_relay/internal/domain"
)

func TestResolve(t *testing.T) {
	r := &RabbitMQ{}

	target, err := r.Resolve(context.Background(), domain.Destination{ID: "42", Kind: domain.KindDirectMessage, DisplayName: "kim"})
	require.NoError(t, err)
	assert.True(t, target.CanPost)
	assert.Equal(t, "kim", target.Name)

	_, err = r.Resolve(context.Background(), domain.Destination{ID: "1", Kind: "fax"})
	assert.True(t, errors.Is(err, domain.ErrInvalidKind))
}
