package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
)

func TestParseVoteType(t *testing.T) {
	for _, in := range []string{"Up", "up", " UP "} {
		vt, err := ParseVoteType(in)
		require.NoError(t, err)
		assert.Equal(t, VoteUp, vt)
	}

	vt, err := ParseVoteType("down")
	require.NoError(t, err)
	assert.Equal(t, VoteDown, vt)
	assert.Equal(t, -1, vt.Weight())

	_, err = ParseVoteType("sideways")
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestNewVoteTargetRequiresExactlyOne(t *testing.T) {
	q, a := 7, 9

	target, err := NewVoteTarget(&q, nil)
	require.NoError(t, err)
	assert.Equal(t, QuestionTarget(7), target)

	target, err = NewVoteTarget(nil, &a)
	require.NoError(t, err)
	assert.Equal(t, AnswerTarget(9), target)

	_, err = NewVoteTarget(&q, &a)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	_, err = NewVoteTarget(nil, nil)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestVoteTargetColumns(t *testing.T) {
	qid, aid := QuestionTarget(3).IDs()
	require.NotNil(t, qid)
	assert.Nil(t, aid)
	assert.Equal(t, 3, *qid)

	v := Vote{AnswerID: aid}
	_, ok := v.Target()
	assert.False(t, ok)

	qid, aid = AnswerTarget(4).IDs()
	v = Vote{QuestionID: qid, AnswerID: aid}
	target, ok := v.Target()
	assert.True(t, ok)
	assert.Equal(t, AnswerTarget(4), target)
}
