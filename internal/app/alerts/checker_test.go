package alerts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokidakohei-rt/pipedrive-slack-notification/internal/domain"
)

type fakeCRM struct {
	deals  []*domain.Deal
	stages map[string]string
	fail   bool
}

func (f *fakeCRM) ListStages(ctx context.Context, pipelineID string) ([]domain.Stage, error) {
	return nil, errors.New("not used")
}

func (f *fakeCRM) ListOpenDeals(ctx context.Context, pipelineID, stageID string) ([]*domain.Deal, error) {
	if f.fail {
		return nil, errors.New("pipedrive down")
	}
	return f.deals, nil
}

func (f *fakeCRM) GetDeal(ctx context.Context, id string) (*domain.Deal, error) {
	return nil, errors.New("not used")
}

func (f *fakeCRM) GetStage(ctx context.Context, id string) (*domain.Stage, error) {
	name, ok := f.stages[id]
	if !ok {
		return nil, fmt.Errorf("stage %s not found", id)
	}
	return &domain.Stage{ID: id, Name: name}, nil
}

func (f *fakeCRM) UpdateDealStage(ctx context.Context, id, stageID string) error {
	return errors.New("not used")
}

func (f *fakeCRM) UpdateDealField(ctx context.Context, id, fieldKey, value string) error {
	return errors.New("alert job must never write back")
}

type post struct {
	text, threadTS string
}

type fakeChat struct {
	posts []post
}

func (f *fakeChat) OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	return errors.New("not used")
}

func (f *fakeChat) UpdateView(ctx context.Context, viewID, hash string, view slack.ModalViewRequest) error {
	return errors.New("not used")
}

func (f *fakeChat) PostMessage(ctx context.Context, channel, text, threadTS string) (string, error) {
	f.posts = append(f.posts, post{text, threadTS})
	return "1718.1", nil
}

const handoverKey = "handover_key"

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newChecker(crm *fakeCRM, chat *fakeChat) *Checker {
	c := NewChecker(crm, chat, Config{
		PipelineID:           "1",
		Channel:              "C12345",
		HandoverDateFieldKey: handoverKey,
		ThreadTSFieldKey:     "thread_key",
	})
	c.now = func() time.Time { return testNow }
	return c
}

func dealWithHandover(id, title, date string) *domain.Deal {
	return &domain.Deal{
		ID: id, Title: title, StageID: "7",
		Custom: map[string]any{handoverKey: date},
	}
}

func TestDeadlineAlertWindows(t *testing.T) {
	crm := &fakeCRM{
		stages: map[string]string{"7": "商談中"},
		deals: []*domain.Deal{
			dealWithHandover("1", "ThreeDays", "2025-06-18"),
			dealWithHandover("2", "Tomorrow", "2025-06-16"),
			dealWithHandover("3", "Today", "2025-06-15"),
			dealWithHandover("4", "Overdue", "2025-06-10"),
			dealWithHandover("5", "TooFar", "2025-06-19"),
			dealWithHandover("6", "TwoDays", "2025-06-17"),
		},
	}
	chat := &fakeChat{}

	require.NoError(t, newChecker(crm, chat).Run(context.Background()))

	require.Len(t, chat.posts, 4)
	assert.Contains(t, chat.posts[0].text, "3日後が期限")
	assert.Contains(t, chat.posts[0].text, "ThreeDays")
	assert.Contains(t, chat.posts[1].text, "明日が期限")
	assert.Contains(t, chat.posts[2].text, "本日が期限")
	assert.Contains(t, chat.posts[3].text, "期限超過（5日経過）")
	for _, p := range chat.posts {
		assert.Contains(t, p.text, "商談中")
	}
}

func TestStagnationAlertExactDaysOnly(t *testing.T) {
	stagnant := func(id string, days int) *domain.Deal {
		return &domain.Deal{
			ID: id, Title: "S" + id, StageID: "9",
			StageChangeTime: testNow.AddDate(0, 0, -days).Format("2006-01-02 15:04:05"),
		}
	}
	crm := &fakeCRM{
		stages: map[string]string{"9": "リード"},
		deals: []*domain.Deal{
			stagnant("1", 3),
			stagnant("2", 7),
			stagnant("3", 8), // not a window day
			stagnant("4", 30),
		},
	}
	chat := &fakeChat{}

	require.NoError(t, newChecker(crm, chat).Run(context.Background()))

	require.Len(t, chat.posts, 3)
	assert.Contains(t, chat.posts[0].text, "3日間同じステージ")
	assert.Contains(t, chat.posts[0].text, "📌")
	assert.Contains(t, chat.posts[1].text, "7日間同じステージ")
	assert.Contains(t, chat.posts[2].text, "30日間同じステージ")
	assert.Contains(t, chat.posts[2].text, "🚨")
}

func TestStagnationParsesRFC3339(t *testing.T) {
	crm := &fakeCRM{
		stages: map[string]string{"9": "リード"},
		deals: []*domain.Deal{{
			ID: "1", StageID: "9",
			StageChangeTime: testNow.AddDate(0, 0, -14).Format(time.RFC3339),
		}},
	}
	chat := &fakeChat{}

	require.NoError(t, newChecker(crm, chat).Run(context.Background()))

	require.Len(t, chat.posts, 1)
	assert.Contains(t, chat.posts[0].text, "14日間同じステージ")
	assert.Contains(t, chat.posts[0].text, "⚠️")
}

func TestAlertsReuseExistingThread(t *testing.T) {
	deal := dealWithHandover("1", "Acme", "2025-06-15")
	deal.Custom["thread_key"] = "1700.99"
	crm := &fakeCRM{stages: map[string]string{"7": "商談中"}, deals: []*domain.Deal{deal}}
	chat := &fakeChat{}

	require.NoError(t, newChecker(crm, chat).Run(context.Background()))

	require.Len(t, chat.posts, 1)
	assert.Equal(t, "1700.99", chat.posts[0].threadTS)
}

func TestUnknownStageFallsBackToIDLabel(t *testing.T) {
	crm := &fakeCRM{stages: map[string]string{}, deals: []*domain.Deal{dealWithHandover("1", "Acme", "2025-06-15")}}
	chat := &fakeChat{}

	require.NoError(t, newChecker(crm, chat).Run(context.Background()))

	require.Len(t, chat.posts, 1)
	assert.Contains(t, chat.posts[0].text, "ステージ7")
}

func TestFetchFailureIsAnError(t *testing.T) {
	err := newChecker(&fakeCRM{fail: true}, &fakeChat{}).Run(context.Background())
	require.Error(t, err)
}

func TestDealsWithoutDatesAreSkipped(t *testing.T) {
	crm := &fakeCRM{deals: []*domain.Deal{{ID: "1", Title: "NoDates"}}}
	chat := &fakeChat{}

	require.NoError(t, newChecker(crm, chat).Run(context.Background()))
	assert.Empty(t, chat.posts)
}
