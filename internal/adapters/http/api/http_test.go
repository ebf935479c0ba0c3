package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchpoint/internal/adapters/broadcast"
	"github.com/okian/matchpoint/internal/adapters/http/api"
	"github.com/okian/matchpoint/internal/adapters/storage"
	service "github.com/okian/matchpoint/internal/app"
	"github.com/okian/matchpoint/internal/domain/model"
	"github.com/okian/matchpoint/internal/reconcile"
	"github.com/okian/matchpoint/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type fixture struct {
	ts  *httptest.Server
	svc *service.Service
	hub *broadcast.Hub
}

func newFixture(ctx context.Context) *fixture {
	hub := broadcast.NewHub()
	hub.Start(ctx)
	svc := service.New(
		service.WithStore(storage.NewMemoryStore()),
		service.WithPublisher(hub),
	)
	So(svc.Start(ctx), ShouldBeNil)
	rec := reconcile.New(svc, reconcile.WithPollInterval(2*time.Second))

	mux := http.NewServeMux()
	api.NewServer(svc, rec, hub, svc).Register(ctx, mux)
	return &fixture{ts: httptest.NewServer(mux), svc: svc, hub: hub}
}

func (f *fixture) close() {
	f.ts.Close()
	f.svc.Stop()
	f.hub.Stop()
}

func (f *fixture) post(path string, body string) (*http.Response, error) {
	return http.Post(f.ts.URL+path, "application/json", bytes.NewBufferString(body))
}

type actionResp struct {
	Status   string         `json:"status"`
	Snapshot model.Snapshot `json:"snapshot"`
}

type errorResp struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decode[T any](resp *http.Response) T {
	defer resp.Body.Close()
	var v T
	So(json.NewDecoder(resp.Body).Decode(&v), ShouldBeNil)
	return v
}

const createBody = `{"match_id":"m1","team1":{"name":"Aces"},"team2":{"name":"Breakers"},"points_to_win_set":3,"total_sets":3}`

func TestCreateMatchEndpoint(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		defer f.close()

		Convey("When a valid match is posted", func() {
			resp, err := f.post("/matches", createBody)
			So(err, ShouldBeNil)

			Convey("Then it is created as scheduled", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				body := decode[actionResp](resp)
				So(body.Status, ShouldEqual, "ok")
				So(body.Snapshot.MatchID, ShouldEqual, "m1")
				So(body.Snapshot.Status, ShouldEqual, model.StatusScheduled)
				So(body.Snapshot.Sequence, ShouldEqual, 0)
			})

			Convey("And posting the same id again conflicts", func() {
				resp2, err := f.post("/matches", createBody)
				So(err, ShouldBeNil)
				So(resp2.StatusCode, ShouldEqual, http.StatusConflict)
				So(decode[errorResp](resp2).Code, ShouldEqual, "state_conflict")
			})
		})

		Convey("When the body is missing a team name", func() {
			resp, err := f.post("/matches", `{"team1":{"name":"Aces"},"team2":{}}`)
			So(err, ShouldBeNil)

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(decode[errorResp](resp).Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When the body asks for an even number of sets", func() {
			resp, err := f.post("/matches", `{"team1":{"name":"Aces"},"team2":{"name":"Breakers"},"total_sets":2}`)
			So(err, ShouldBeNil)

			Convey("Then the best-of-N rule rejects it", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(decode[errorResp](resp).Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When the body is not JSON", func() {
			resp, err := f.post("/matches", "not json")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})
	})
}

func TestScoringEndpoints(t *testing.T) {
	Convey("Given a created match", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		defer f.close()
		resp, err := f.post("/matches", createBody)
		So(err, ShouldBeNil)
		resp.Body.Close()

		Convey("When a point is posted", func() {
			resp, err := f.post("/matches/m1/points", `{"team":1,"action_id":"a1","submitted_by":"ref"}`)
			So(err, ShouldBeNil)

			Convey("Then the match auto-starts and the score moves", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				body := decode[actionResp](resp)
				So(body.Status, ShouldEqual, "ok")
				So(body.Snapshot.Status, ShouldEqual, model.StatusInProgress)
				So(body.Snapshot.CurrentScore, ShouldResemble, [2]int{1, 0})
			})

			Convey("And resubmitting the same action id is a duplicate, not a second point", func() {
				resp2, err := f.post("/matches/m1/points", `{"team":1,"action_id":"a1","submitted_by":"ref"}`)
				So(err, ShouldBeNil)
				So(resp2.StatusCode, ShouldEqual, http.StatusOK)
				body := decode[actionResp](resp2)
				So(body.Status, ShouldEqual, "duplicate")
				So(body.Snapshot.CurrentScore, ShouldResemble, [2]int{1, 0})
			})

			Convey("And undo rolls the point back", func() {
				resp2, err := f.post("/matches/m1/undo", `{"submitted_by":"ref"}`)
				So(err, ShouldBeNil)
				body := decode[actionResp](resp2)
				So(body.Status, ShouldEqual, "ok")
				So(body.Snapshot.CurrentScore, ShouldResemble, [2]int{0, 0})

				Convey("And a second undo is a benign noop", func() {
					resp3, err := f.post("/matches/m1/undo", "")
					So(err, ShouldBeNil)
					So(resp3.StatusCode, ShouldEqual, http.StatusOK)
					So(decode[actionResp](resp3).Status, ShouldEqual, "noop")
				})
			})
		})

		Convey("When an invalid team number is posted", func() {
			resp, err := f.post("/matches/m1/points", `{"team":5}`)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("When a set is completed before the rules allow it", func() {
			resp, err := f.post("/matches/m1/start", "")
			So(err, ShouldBeNil)
			resp.Body.Close()
			resp, err = f.post("/matches/m1/complete-set", "")
			So(err, ShouldBeNil)

			Convey("Then the referee gets a conflict", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				So(decode[errorResp](resp).Code, ShouldEqual, "state_conflict")
			})
		})

		Convey("When an unknown match is acted on", func() {
			resp, err := f.post("/matches/ghost/points", `{"team":1}`)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			So(decode[errorResp](resp).Code, ShouldEqual, "not_found")
		})

		Convey("When the match is read back", func() {
			resp, err := http.Get(f.ts.URL + "/matches/m1")
			So(err, ShouldBeNil)

			Convey("Then the snapshot is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				snap := decode[model.Snapshot](resp)
				So(snap.MatchID, ShouldEqual, "m1")
			})

			Convey("And the listing includes it", func() {
				resp2, err := http.Get(f.ts.URL + "/matches")
				So(err, ShouldBeNil)
				snaps := decode[[]model.Snapshot](resp2)
				So(len(snaps), ShouldEqual, 1)
			})
		})

		Convey("When the audit trail is requested after scoring", func() {
			resp, err := f.post("/matches/m1/points", `{"team":2,"action_id":"b1"}`)
			So(err, ShouldBeNil)
			resp.Body.Close()
			resp, err = http.Get(f.ts.URL + "/matches/m1/events")
			So(err, ShouldBeNil)

			Convey("Then every event is listed in sequence order", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				events := decode[[]model.ScoreEvent](resp)
				So(len(events), ShouldEqual, 2)
				So(events[0].Kind, ShouldEqual, model.EventMatchStarted)
				So(events[1].Kind, ShouldEqual, model.EventPoint)
			})
		})
	})
}

func TestSyncEndpoint(t *testing.T) {
	Convey("Given a match with committed events", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		defer f.close()
		resp, err := f.post("/matches", createBody)
		So(err, ShouldBeNil)
		resp.Body.Close()
		resp, err = f.post("/matches/m1/points", `{"team":1,"action_id":"a1"}`)
		So(err, ShouldBeNil)
		current := decode[actionResp](resp).Snapshot

		type syncResp struct {
			Changed        bool            `json:"changed"`
			Sequence       uint64          `json:"sequence_number"`
			PollIntervalMS int64           `json:"poll_interval_ms"`
			Snapshot       *model.Snapshot `json:"snapshot"`
		}

		Convey("When a current client syncs", func() {
			resp, err := http.Get(f.ts.URL + "/matches/m1/sync?since=2")
			So(err, ShouldBeNil)

			Convey("Then it is told nothing changed, without a snapshot payload", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				body := decode[syncResp](resp)
				So(body.Changed, ShouldBeFalse)
				So(body.Sequence, ShouldEqual, current.Sequence)
				So(body.Snapshot, ShouldBeNil)
				So(body.PollIntervalMS, ShouldEqual, 2000)
			})
		})

		Convey("When a stale client syncs", func() {
			resp, err := http.Get(f.ts.URL + "/matches/m1/sync?since=0")
			So(err, ShouldBeNil)

			Convey("Then the full snapshot comes back", func() {
				body := decode[syncResp](resp)
				So(body.Changed, ShouldBeTrue)
				So(body.Snapshot, ShouldNotBeNil)
				So(body.Snapshot.Sequence, ShouldEqual, current.Sequence)
				So(body.Snapshot.CurrentScore, ShouldResemble, [2]int{1, 0})
			})
		})

		Convey("When since is not a number", func() {
			resp, err := http.Get(f.ts.URL + "/matches/m1/sync?since=abc")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("When the match does not exist", func() {
			resp, err := http.Get(f.ts.URL + "/matches/ghost/sync")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			resp.Body.Close()
		})
	})
}

func TestLiveEndpoint(t *testing.T) {
	Convey("Given a match with a live spectator", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		defer f.close()
		resp, err := f.post("/matches", createBody)
		So(err, ShouldBeNil)
		resp.Body.Close()

		wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/matches/m1/live"
		conn, dialResp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		So(err, ShouldBeNil)
		if dialResp != nil {
			dialResp.Body.Close()
		}
		defer conn.Close()
		So(conn.SetReadDeadline(time.Now().Add(3*time.Second)), ShouldBeNil)

		Convey("When the connection opens", func() {
			var snap model.Snapshot
			So(conn.ReadJSON(&snap), ShouldBeNil)

			Convey("Then the current snapshot arrives immediately", func() {
				So(snap.MatchID, ShouldEqual, "m1")
				So(snap.Sequence, ShouldEqual, 0)
			})

			Convey("And committed points are pushed in order", func() {
				_, _, err := f.svc.RecordPoint(ctx, "m1", 1, "ref", "live-a1")
				So(err, ShouldBeNil)
				_, _, err = f.svc.RecordPoint(ctx, "m1", 2, "ref", "live-a2")
				So(err, ShouldBeNil)

				var first, second model.Snapshot
				So(conn.ReadJSON(&first), ShouldBeNil)
				So(conn.ReadJSON(&second), ShouldBeNil)
				So(first.Sequence, ShouldBeLessThan, second.Sequence)
				So(second.CurrentScore, ShouldResemble, [2]int{1, 1})
			})
		})
	})

	Convey("Given a spectator for an unknown match", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		defer f.close()

		wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/matches/ghost/live"
		conn, dialResp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		So(err, ShouldBeNil)
		if dialResp != nil {
			dialResp.Body.Close()
		}
		defer conn.Close()
		So(conn.SetReadDeadline(time.Now().Add(3*time.Second)), ShouldBeNil)

		Convey("Then the server closes the connection instead of streaming", func() {
			var snap model.Snapshot
			err := conn.ReadJSON(&snap)
			So(err, ShouldNotBeNil)
			So(websocket.IsCloseError(err, websocket.ClosePolicyViolation), ShouldBeTrue)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given a server with one match", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		defer f.close()
		resp, err := f.post("/matches", createBody)
		So(err, ShouldBeNil)
		resp.Body.Close()

		Convey("When stats are requested", func() {
			resp, err := http.Get(f.ts.URL + "/stats")
			So(err, ShouldBeNil)

			Convey("Then counts by status are reported", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				stats := decode[map[string]any](resp)
				So(stats["matches"], ShouldEqual, 1)
				So(stats["scheduled"], ShouldEqual, 1)
			})
		})
	})
}
