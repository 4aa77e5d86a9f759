package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/huangang/taskdesk/internal/config"
	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/upstream"
)

type fakeFailure struct {
	status int
	body   string
}

// fakeAPI is an in-memory stand-in for the task API.
type fakeAPI struct {
	mu          sync.Mutex
	nextID      int64
	projects    map[int64]models.Project
	tasks       map[int64]models.Task
	members     map[int64][]models.ProjectMember
	users       []models.User
	assignments map[int64]models.Assignment
	history     map[int64][]models.TaskHistory
	failures    map[string]fakeFailure
	calls       []string

	// when set, assignment creation waits for the request to be abandoned
	blockAssign   bool
	assignStarted chan struct{}
}

var testCred = upstream.Credential{Token: "tok", UserID: 7, Username: "alice"}

func newFakeAPI(t *testing.T) (*fakeAPI, *upstream.Client) {
	t.Helper()
	f := &fakeAPI{
		nextID:        1000,
		projects:      map[int64]models.Project{},
		tasks:         map[int64]models.Task{},
		members:       map[int64][]models.ProjectMember{},
		assignments:   map[int64]models.Assignment{},
		history:       map[int64][]models.TaskHistory{},
		failures:      map[string]fakeFailure{},
		assignStarted: make(chan struct{}, 16),
	}

	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig().Upstream
	cfg.BaseURL = srv.URL + "/api"
	cfg.TimeoutSeconds = 5
	cfg.Breaker.ConsecutiveFailures = 1000
	return f, upstream.NewClient(cfg)
}

// seed loads project 1 with members 10 (bob) and 20 (carol), task 5 and
// one assignment of member 10.
func (f *fakeAPI) seed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[1] = models.Project{ID: 1, Name: "Apollo"}
	f.members[1] = []models.ProjectMember{
		{ID: 10, Role: models.RoleAdmin, User: models.MemberUser{ID: 100, Username: "bob"}},
		{ID: 20, Role: models.RoleMember, User: models.MemberUser{ID: 200, Username: "carol"}},
	}
	f.users = []models.User{{ID: 100, Username: "bob"}, {ID: 200, Username: "carol"}, {ID: 300, Username: "dave"}}
	f.tasks[5] = models.Task{ID: 5, Name: "Launch", Status: models.StatusTodo, Priority: models.PriorityHigh, ProjectID: 1, CreatedBy: 7}
	f.assignments[1] = models.Assignment{ID: 1, TaskID: 5, ProjectMemberID: 10}
	changedBy := int64(7)
	f.history[5] = []models.TaskHistory{
		{ID: 1, TaskID: 5, ChangedBy: &changedBy, ChangeDescription: "Task created"},
		{ID: 2, TaskID: 5, ChangedBy: &changedBy, ChangeDescription: "Priority set to HIGH"},
	}
}

func (f *fakeAPI) fail(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = fakeFailure{status: status, body: body}
}

func (f *fakeAPI) recover(method, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, method+" "+path)
}

func (f *fakeAPI) called(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAPI) taskAssignments(taskID int64) []models.Assignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Assignment{}
	for _, a := range f.assignments {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id
}

func (f *fakeAPI) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body upstream.LoginRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, "Email ou mot de passe incorrect")
			return
		}
		writeJSON(w, map[string]interface{}{"token": "tok", "username": "alice", "userId": 7})
	})
	mux.HandleFunc("POST /api/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var body upstream.SignupRequest
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, map[string]interface{}{"token": "tok", "username": body.Username})
	})

	mux.HandleFunc("GET /api/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		p, ok := f.projects[pathID(r)]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, p)
	})
	mux.HandleFunc("POST /api/projects", func(w http.ResponseWriter, r *http.Request) {
		var in upstream.ProjectInput
		json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		f.nextID++
		p := models.Project{ID: f.nextID, Name: in.Name, Description: in.Description}
		p.StartDate.UnmarshalJSON([]byte(strconv.Quote(in.StartDate)))
		f.projects[p.ID] = p
		f.mu.Unlock()
		writeJSON(w, p)
	})
	mux.HandleFunc("GET /api/projects/{id}/members", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		list := append([]models.ProjectMember{}, f.members[pathID(r)]...)
		f.mu.Unlock()
		writeJSON(w, list)
	})
	mux.HandleFunc("GET /api/projects/{id}/tasks", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		list := []models.Task{}
		for _, t := range f.tasks {
			if t.ProjectID == pathID(r) {
				list = append(list, t)
			}
		}
		f.mu.Unlock()
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		writeJSON(w, list)
	})

	mux.HandleFunc("POST /api/project-members", func(w http.ResponseWriter, r *http.Request) {
		var in upstream.AddMemberRequest
		json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		f.nextID++
		m := models.ProjectMember{ID: f.nextID, Role: in.Role, User: models.MemberUser{ID: in.UserID}}
		f.members[in.ProjectID] = append(f.members[in.ProjectID], m)
		f.mu.Unlock()
		writeJSON(w, m)
	})

	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		list := append([]models.User{}, f.users...)
		f.mu.Unlock()
		writeJSON(w, list)
	})

	mux.HandleFunc("GET /api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		t, ok := f.tasks[pathID(r)]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, t)
	})
	mux.HandleFunc("POST /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		var in upstream.TaskInput
		json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		f.nextID++
		t := models.Task{ID: f.nextID, Name: in.Name, Description: in.Description, DueDate: in.DueDate,
			Priority: in.Priority, Status: in.Status, CreatedBy: in.CreatedBy, ProjectID: in.ProjectID}
		f.tasks[t.ID] = t
		f.mu.Unlock()
		writeJSON(w, t)
	})
	mux.HandleFunc("PUT /api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in upstream.TaskInput
		json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		t, ok := f.tasks[pathID(r)]
		if ok {
			t.Name, t.Description, t.Status, t.Priority = in.Name, in.Description, in.Status, in.Priority
			t.DueDate, t.EndDate = in.DueDate, in.EndDate
			f.tasks[t.ID] = t
		}
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, t)
	})

	mux.HandleFunc("PATCH /api/tasks/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Status models.TaskStatus `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		t, ok := f.tasks[pathID(r)]
		if ok {
			t.Status = in.Status
			f.tasks[t.ID] = t
		}
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, t)
	})
	mux.HandleFunc("DELETE /api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		_, ok := f.tasks[pathID(r)]
		delete(f.tasks, pathID(r))
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/tasks/{id}/history", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		list := append([]models.TaskHistory{}, f.history[pathID(r)]...)
		f.mu.Unlock()
		writeJSON(w, list)
	})

	mux.HandleFunc("GET /api/task-assignments/by-task/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, f.taskAssignments(pathID(r)))
	})
	mux.HandleFunc("POST /api/task-assignments", func(w http.ResponseWriter, r *http.Request) {
		var in models.Assignment
		json.NewDecoder(r.Body).Decode(&in)

		f.mu.Lock()
		block := f.blockAssign
		f.mu.Unlock()
		if block {
			f.assignStarted <- struct{}{}
			<-r.Context().Done()
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		for _, a := range f.assignments {
			if a.TaskID == in.TaskID && a.ProjectMemberID == in.ProjectMemberID {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, "User already assigned to this task")
				return
			}
		}
		f.nextID++
		in.ID = f.nextID
		f.assignments[in.ID] = in
		writeJSON(w, in)
	})
	mux.HandleFunc("DELETE /api/task-assignments/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		delete(f.assignments, pathID(r))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		f.mu.Lock()
		f.calls = append(f.calls, key)
		failure, failing := f.failures[key]
		f.mu.Unlock()

		if failing {
			w.WriteHeader(failure.status)
			io.WriteString(w, failure.body)
			return
		}
		mux.ServeHTTP(w, r)
	})
}
