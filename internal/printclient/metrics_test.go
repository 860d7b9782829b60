package printclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSubmit_RecordsMetrics(t *testing.T) {
	_, srv := newAgent(t,
		response{http.StatusBadGateway, ""},
		response{http.StatusOK, `{"message":"ok"}`},
	)

	acceptedBefore := testutil.ToFloat64(SubmissionsTotal.WithLabelValues("accepted"))
	attemptsOKBefore := testutil.ToFloat64(AttemptsTotal.WithLabelValues("accepted"))
	attemptsErrBefore := testutil.ToFloat64(AttemptsTotal.WithLabelValues("ServerError"))

	out := newTestClient(srv.URL).Submit(context.Background(), testRequest("AB12"))
	if !out.Accepted() {
		t.Fatalf("Submit() rejected: %v", out.Err)
	}

	if got := testutil.ToFloat64(SubmissionsTotal.WithLabelValues("accepted")) - acceptedBefore; got != 1 {
		t.Errorf("accepted submissions delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(AttemptsTotal.WithLabelValues("accepted")) - attemptsOKBefore; got != 1 {
		t.Errorf("accepted attempts delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(AttemptsTotal.WithLabelValues("ServerError")) - attemptsErrBefore; got != 1 {
		t.Errorf("server error attempts delta = %v, want 1", got)
	}
}

func TestResultLabel(t *testing.T) {
	if got := resultLabel(nil); got != "accepted" {
		t.Errorf("resultLabel(nil) = %q", got)
	}
	if got := resultLabel(&Error{Kind: NotFound}); got != "NotFound" {
		t.Errorf("resultLabel(NotFound) = %q", got)
	}
}
