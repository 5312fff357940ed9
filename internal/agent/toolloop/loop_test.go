package toolloop

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/gateway/gatewaytest"
	"github.com/jobchat-core/server/internal/agent/tools"
	errx "github.com/jobchat-core/server/internal/core/error"
)

func newLoop(t *testing.T, fake *gatewaytest.ScriptedModel) *Loop {
	t.Helper()
	reg, err := tools.NewDefaultRegistry(context.Background(), tools.Deps{})
	require.NoError(t, err)
	return New(gateway.New(gateway.ResponseGateway, "test", fake, 0), reg, DefaultMaxSteps)
}

func history() []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage("You help job seekers."),
		schema.UserMessage("Việc Python ở Hà Nội?"),
	}
}

var searchCall = gatewaytest.Call("c1", tools.ToolSearchJobInfo, `{"location":"Hà Nội","skills":"Python"}`)

func TestRunWithoutToolsIsOnePlainGeneration(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(gatewaytest.Text("Xin chào"))
	res := newLoop(t, fake).Run(context.Background(), history(), nil, 3)

	require.NoError(t, res.Err)
	assert.Equal(t, "Xin chào", res.FinalAnswer)
	assert.Equal(t, 1, res.Steps)
	assert.False(t, res.MaxStepsReached)
	assert.Equal(t, 1, fake.Calls())
	assert.Empty(t, fake.Requests()[0].Tools)
}

func TestRunAnswersDirectlyWhenNoToolRequested(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(gatewaytest.Text("Here are the jobs"))
	res := newLoop(t, fake).Run(context.Background(), history(), []string{tools.ToolSearchJobInfo}, 3)

	require.NoError(t, res.Err)
	assert.Equal(t, "Here are the jobs", res.FinalAnswer)
	assert.Equal(t, 1, res.Steps)
	require.Len(t, fake.Requests()[0].Tools, 1)
}

func TestRunSingleStepBudget(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(
		gatewaytest.ToolCalls("", searchCall),
		gatewaytest.Text("Có 3 việc phù hợp."),
	)
	res := newLoop(t, fake).Run(context.Background(), history(), []string{tools.ToolSearchJobInfo}, 1)

	require.NoError(t, res.Err)
	assert.Equal(t, 2, fake.Calls())
	assert.True(t, res.MaxStepsReached)
	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, "Có 3 việc phù hợp.", res.FinalAnswer)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, tools.ToolSearchJobInfo, res.ToolCalls[0].ToolName)
	assert.Empty(t, res.ToolCalls[0].Error)

	final := fake.Requests()[1].Messages
	require.Len(t, final, 5)
	assert.Equal(t, schema.Assistant, final[2].Role)
	assert.Equal(t, schema.Tool, final[3].Role)
	assert.Equal(t, "c1", final[3].ToolCallID)
	assert.Contains(t, final[3].Content, "J001")
	assert.Equal(t, schema.User, final[4].Role)
	assert.Equal(t, FinalAnswerInstruction, final[4].Content)
}

func TestRunGatewayCallBound(t *testing.T) {
	for _, maxSteps := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprint(maxSteps), func(t *testing.T) {
			fake := gatewaytest.NewScriptedModel().Always(gatewaytest.ToolCalls("", searchCall))
			res := newLoop(t, fake).Run(context.Background(), history(), []string{tools.ToolSearchJobInfo}, maxSteps)

			assert.Equal(t, maxSteps+1, fake.Calls())
			assert.True(t, res.MaxStepsReached)
			assert.Equal(t, maxSteps, res.Steps)
			assert.Len(t, res.ToolCalls, maxSteps)
		})
	}
}

func TestRunNormalizesMaxSteps(t *testing.T) {
	fake := gatewaytest.NewScriptedModel().Always(gatewaytest.ToolCalls("", searchCall))
	res := newLoop(t, fake).Run(context.Background(), history(), []string{tools.ToolSearchJobInfo}, 0)

	assert.Equal(t, DefaultMaxSteps, res.Steps)
	assert.Equal(t, DefaultMaxSteps+1, fake.Calls())
}

func TestRunToolErrorsAreRecordedAndLoopContinues(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(
		gatewaytest.ToolCalls("", gatewaytest.Call("c1", tools.ToolGetJobDetails, `{"job_id":"J999"}`)),
		gatewaytest.ToolCalls("", gatewaytest.Call("c2", tools.ToolGetJobDetails, `{"job_id":"J001"}`)),
		gatewaytest.Text("J001 is a Python role at FPT Software."),
	)
	res := newLoop(t, fake).Run(context.Background(), history(), []string{tools.ToolGetJobDetails}, 3)

	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Steps)
	assert.False(t, res.MaxStepsReached)
	require.Len(t, res.ToolCalls, 2)
	assert.NotEmpty(t, res.ToolCalls[0].Error)
	assert.Empty(t, res.ToolCalls[1].Error)

	second := fake.Requests()[1].Messages
	assert.Contains(t, second[len(second)-1].Content, "Error executing tool 'get_job_details'")
}

func TestRunTransportErrorAborts(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(
		gatewaytest.ToolCalls("", searchCall),
		gatewaytest.Fail(errors.New("503 service unavailable")),
	)
	res := newLoop(t, fake).Run(context.Background(), history(), []string{tools.ToolSearchJobInfo}, 3)

	require.Error(t, res.Err)
	assert.Equal(t, errx.KindTransport, errx.KindOf(res.Err))
	assert.Equal(t, ApologyText, res.FinalAnswer)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, 2, fake.Calls())
	assert.Len(t, res.ToolCalls, 1)
}

func TestRunFinalGenerationFailure(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(
		gatewaytest.ToolCalls("", searchCall),
		gatewaytest.Fail(errors.New("timeout")),
	)
	res := newLoop(t, fake).Run(context.Background(), history(), []string{tools.ToolSearchJobInfo}, 1)

	require.Error(t, res.Err)
	assert.True(t, res.MaxStepsReached)
	assert.Equal(t, ApologyText, res.FinalAnswer)
	assert.Equal(t, 2, fake.Calls())
}

func TestRunSynthesizesMissingCallIDs(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(
		gatewaytest.ToolCalls("looking",
			gatewaytest.Call("", tools.ToolSearchJobInfo, `{"location":"HCM"}`),
			gatewaytest.Call("", tools.ToolGetJobDetails, `{"job_id":"J003"}`),
		),
		gatewaytest.Text("done"),
	)
	res := newLoop(t, fake).Run(context.Background(), history(), []string{tools.ToolSearchJobInfo, tools.ToolGetJobDetails}, 3)

	require.NoError(t, res.Err)
	require.Len(t, res.ToolCalls, 2)
	assert.Equal(t, "call_1", res.ToolCalls[0].ID)
	assert.Equal(t, "call_2", res.ToolCalls[1].ID)

	msgs := fake.Requests()[1].Messages
	assert.Equal(t, "looking", msgs[2].Content)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)
	assert.Equal(t, "call_2", msgs[4].ToolCallID)
}

func TestRunDropsUnresolvedAndRejectsUnofferedTools(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(
		gatewaytest.ToolCalls("", gatewaytest.Call("c1", tools.ToolGetJobDetails, `{"job_id":"J001"}`)),
		gatewaytest.Text("ok"),
	)
	res := newLoop(t, fake).Run(context.Background(), history(), []string{"no_such_tool", tools.ToolSearchJobInfo}, 3)

	require.NoError(t, res.Err)
	require.Len(t, fake.Requests()[0].Tools, 1)
	assert.Equal(t, tools.ToolSearchJobInfo, fake.Requests()[0].Tools[0].Name)
	require.Len(t, res.ToolCalls, 1)
	assert.Contains(t, res.ToolCalls[0].Error, "tool not found")
}

func TestRunDoesNotMutateHistory(t *testing.T) {
	h := history()
	fake := gatewaytest.NewScriptedModel(gatewaytest.ToolCalls("", searchCall), gatewaytest.Text("done"))
	newLoop(t, fake).Run(context.Background(), h, []string{tools.ToolSearchJobInfo}, 3)
	assert.Len(t, h, 2)
}
