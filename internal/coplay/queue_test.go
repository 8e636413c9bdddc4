package coplay

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type QueueSuite struct {
	suite.Suite
}

func (s *QueueSuite) TestDrainInOrder() {
	q := newEventQueue()
	var got []int
	for i := 0; i < 3; i++ {
		i := i
		q.Post(func() { got = append(got, i) })
	}
	s.Equal(3, q.Len())

	q.Drain()
	s.Equal([]int{0, 1, 2}, got)
	s.Equal(0, q.Len())
}

func (s *QueueSuite) TestRepostDeferredToNextDrain() {
	q := newEventQueue()
	var got []string
	q.Post(func() {
		got = append(got, "first")
		// 排空期间的入队留到下一轮，避免无限循环。
		q.Post(func() { got = append(got, "second") })
	})

	q.Drain()
	s.Equal([]string{"first"}, got)

	q.Drain()
	s.Equal([]string{"first", "second"}, got)
}

func (s *QueueSuite) TestDrainEmpty() {
	q := newEventQueue()
	q.Drain()
	s.Equal(0, q.Len())
}

func TestEventQueue(t *testing.T) {
	suite.Run(t, new(QueueSuite))
}
