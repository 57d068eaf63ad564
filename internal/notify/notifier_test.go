package notify

import (
	"sync"
	"testing"
	"time"

	"pipeline-dashboard-go/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNotifier_ShowThenHide(t *testing.T) {
	n := New(20*time.Millisecond, zap.NewNop())

	msg := n.Show("Pipeline started", true)

	assert.True(t, msg.Show)
	assert.Equal(t, models.MessageBottomShown, msg.Bottom)
	assert.NotEmpty(t, msg.ID)
	assert.True(t, n.Pending())

	assert.Eventually(t, func() bool {
		return n.Current().Bottom == models.MessageBottomHidden
	}, time.Second, 5*time.Millisecond)

	cur := n.Current()
	assert.False(t, cur.Show)
	assert.Equal(t, "Pipeline started", cur.Text, "text is kept while sliding out")
	assert.False(t, n.Pending())
	assert.Equal(t, 1, n.Hides())
}

func TestNotifier_SecondMessageCancelsFirstHide(t *testing.T) {
	n := New(200*time.Millisecond, zap.NewNop())

	first := n.Show("first", true)
	time.Sleep(100 * time.Millisecond)
	second := n.Show("second", false)
	assert.NotEqual(t, first.ID, second.ID)

	// The first message's hide would have fired by now.
	time.Sleep(150 * time.Millisecond)
	cur := n.Current()
	assert.True(t, cur.Show)
	assert.Equal(t, second.ID, cur.ID)
	assert.Equal(t, 0, n.Hides())

	assert.Eventually(t, func() bool { return n.Hides() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, second.ID, n.Current().ID)
	assert.False(t, n.Current().Success)

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, n.Hides(), "only one hide transition ever runs")
}

func TestNotifier_OnChange(t *testing.T) {
	n := New(10*time.Millisecond, zap.NewNop())

	var mu sync.Mutex
	var seen []models.Message
	n.OnChange(func(m models.Message) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, m)
	})

	n.Show("deleted", true)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen[0].Show)
	assert.False(t, seen[1].Show)
	assert.Equal(t, seen[0].ID, seen[1].ID)
}

func TestNotifier_Stop(t *testing.T) {
	n := New(10*time.Millisecond, zap.NewNop())
	n.Show("stays", true)

	n.Stop()
	time.Sleep(30 * time.Millisecond)

	assert.True(t, n.Current().Show)
	assert.Equal(t, 0, n.Hides())
	assert.False(t, n.Pending())
}
