package metrics

import (
	"PoseLogin/pkg/pose"
	"PoseLogin/pkg/sequencer"
	"PoseLogin/pkg/stream"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStepCountsOutcomesAndPoses(t *testing.T) {
	framesTotal.Reset()
	poseObservationsTotal.Reset()

	RecordStep(stream.Step{Outcome: stream.OutcomeFrame, Pose: pose.LookingLeft}, 10*time.Millisecond)
	RecordStep(stream.Step{Outcome: stream.OutcomeFrame, Pose: pose.LookingLeft}, 10*time.Millisecond)
	RecordStep(stream.Step{Outcome: stream.OutcomeSkip, Pose: pose.Smile}, 10*time.Millisecond)
	RecordStep(stream.Step{Outcome: stream.OutcomeTerminate}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(framesTotal.WithLabelValues("frame")))
	assert.Equal(t, 1.0, testutil.ToFloat64(framesTotal.WithLabelValues("skip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(framesTotal.WithLabelValues("terminate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(poseObservationsTotal.WithLabelValues("Looking Left")))
	assert.Equal(t, 1.0, testutil.ToFloat64(poseObservationsTotal.WithLabelValues("Smile")))
}

func TestRecordStepCountsAdvancesAndCompletions(t *testing.T) {
	advancedBefore := testutil.ToFloat64(stepsAdvancedTotal)
	completedBefore := testutil.ToFloat64(loginsCompletedTotal)

	RecordStep(stream.Step{Outcome: stream.OutcomeFrame, Pose: pose.Smile,
		Transition: sequencer.Transition{Advanced: true, Step: 1}}, time.Millisecond)
	RecordStep(stream.Step{Outcome: stream.OutcomeFrame, Pose: pose.Smile,
		Transition: sequencer.Transition{Advanced: true, Finished: true, Step: 2}}, time.Millisecond)
	RecordStep(stream.Step{Outcome: stream.OutcomeFrame, Pose: pose.Smile,
		Transition: sequencer.Transition{Finished: true, Step: 2}}, time.Millisecond)

	assert.Equal(t, advancedBefore+2, testutil.ToFloat64(stepsAdvancedTotal))
	assert.Equal(t, completedBefore+1, testutil.ToFloat64(loginsCompletedTotal))
}

func TestStreamClientsGauge(t *testing.T) {
	before := testutil.ToFloat64(streamClientsActive)
	RecordStreamStart()
	assert.Equal(t, before+1, testutil.ToFloat64(streamClientsActive))
	RecordStreamEnd()
	assert.Equal(t, before, testutil.ToFloat64(streamClientsActive))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordReset()

	rec := httptest.NewRecorder()
	Handler(NewRegistry()).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "poselogin_session_resets_total")
	assert.Contains(t, string(body), "go_goroutines")
}
