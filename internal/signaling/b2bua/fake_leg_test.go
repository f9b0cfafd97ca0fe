package b2bua

import (
	"fmt"
	"sync"
)

// call is one recorded signaling operation on a fakeLeg.
type call struct {
	Op       string
	Headers  Headers
	Params   AnswerParams
	Peer     Leg
	Scheme   string
	Text     string
	MimeType string
	Body     string
	Rej      Rejection
}

type fakeLeg struct {
	Emitter

	id          string
	clientType  ClientType
	caps        Capabilities
	displayName string
	scheme      string

	// onAdd runs after each listener registration
	onAdd func(t EventType)

	mu    sync.Mutex
	calls []call
}

func newFakeLeg(id string, ct ClientType) *fakeLeg {
	return &fakeLeg{
		id:          id,
		clientType:  ct,
		caps:        Capabilities{SupportsReInvite: true},
		displayName: "display-" + id,
	}
}

func (l *fakeLeg) ID() string                 { return l.id }
func (l *fakeLeg) ClientType() ClientType     { return l.clientType }
func (l *fakeLeg) Capabilities() Capabilities { return l.caps }
func (l *fakeLeg) DisplayName() string        { return l.displayName }
func (l *fakeLeg) Scheme() string             { return l.scheme }

func (l *fakeLeg) AddEventListener(t EventType, fn Handler) func() {
	remove := l.Emitter.AddEventListener(t, fn)
	if l.onAdd != nil {
		l.onAdd(t)
	}
	return remove
}

func (l *fakeLeg) record(c call) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

func (l *fakeLeg) Answer(headers Headers, params AnswerParams) {
	l.record(call{Op: "Answer", Headers: headers, Params: params})
}

func (l *fakeLeg) AnswerDirect(peer Leg, headers Headers, params AnswerParams) {
	l.record(call{Op: "AnswerDirect", Peer: peer, Headers: headers, Params: params})
}

func (l *fakeLeg) Ring() {
	l.record(call{Op: "Ring"})
}

func (l *fakeLeg) StartEarlyMedia(headers Headers, scheme string) {
	l.record(call{Op: "StartEarlyMedia", Headers: headers, Scheme: scheme})
}

func (l *fakeLeg) SendMessage(text string) {
	l.record(call{Op: "SendMessage", Text: text})
}

func (l *fakeLeg) SendInfo(mimeType, body string, headers Headers) {
	l.record(call{Op: "SendInfo", MimeType: mimeType, Body: body, Headers: headers})
}

func (l *fakeLeg) ReInvite(headers Headers, mimeType, body string) {
	l.record(call{Op: "ReInvite", Headers: headers, MimeType: mimeType, Body: body})
}

func (l *fakeLeg) AcceptReInvite(headers Headers, mimeType, body string) {
	l.record(call{Op: "AcceptReInvite", Headers: headers, MimeType: mimeType, Body: body})
}

func (l *fakeLeg) RejectReInvite(headers Headers, rejection Rejection) {
	l.record(call{Op: "RejectReInvite", Headers: headers, Rej: rejection})
}

// Calls returns recorded operations named op.
func (l *fakeLeg) Calls(op string) []call {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []call
	for _, c := range l.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (l *fakeLeg) CallCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// fire emits an event of type t from the leg.
func (l *fakeLeg) fire(t EventType, mutate ...func(e *Event)) {
	e := &Event{Type: t, Leg: l}
	for _, m := range mutate {
		m(e)
	}
	l.Emit(e)
}

type closeCounter struct {
	mu sync.Mutex
	n  int
}

func (c *closeCounter) CloseSession() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *closeCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// fakeFactory records leg creation requests and returns prepared legs.
type fakeFactory struct {
	mu     sync.Mutex
	next   int
	err    error
	legs   []*fakeLeg
	pstn   []pstnRequest
	users  []userRequest
	direct []directRequest
	sips   []sipRequest
}

type pstnRequest struct {
	Number, CallerID string
	Opts             PSTNOptions
}

type userRequest struct {
	Username, CallerID, DisplayName string
	Headers                         Headers
	Video                           bool
	Scheme                          string
}

type directRequest struct {
	Ctx      Leg
	Username string
	Opts     DirectUserOptions
}

type sipRequest struct {
	URI, CallerID, DisplayName string
	Headers                    Headers
	Video                      bool
}

func (f *fakeFactory) newLeg(ct ClientType) (Leg, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.next++
	leg := newFakeLeg(fmt.Sprintf("out-%d", f.next), ct)
	f.legs = append(f.legs, leg)
	return leg, nil
}

func (f *fakeFactory) CreatePSTNLeg(number, callerID string, opts PSTNOptions) (Leg, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pstn = append(f.pstn, pstnRequest{number, callerID, opts})
	return f.newLeg(ClientTypePSTN)
}

func (f *fakeFactory) CreateUserLeg(username, callerID, displayName string, headers Headers, video bool, scheme string) (Leg, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userRequest{username, callerID, displayName, headers, video, scheme})
	return f.newLeg(ClientTypeUser)
}

func (f *fakeFactory) CreateDirectUserLeg(ctxLeg Leg, username string, opts DirectUserOptions) (Leg, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct = append(f.direct, directRequest{ctxLeg, username, opts})
	return f.newLeg(ClientTypeDirect)
}

func (f *fakeFactory) CreateSIPLeg(uri, callerID, displayName string, headers Headers, video bool) (Leg, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sips = append(f.sips, sipRequest{uri, callerID, displayName, headers, video})
	return f.newLeg(ClientTypeSIP)
}

func (f *fakeFactory) lastLeg() *fakeLeg {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.legs) == 0 {
		return nil
	}
	return f.legs[len(f.legs)-1]
}

// fakeAlertSource delivers alerts synchronously to every subscriber.
type fakeAlertSource struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(e *AlertEvent)
}

func newFakeAlertSource() *fakeAlertSource {
	return &fakeAlertSource{subs: make(map[int]func(e *AlertEvent))}
}

func (s *fakeAlertSource) OnCallAlerting(fn func(e *AlertEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *fakeAlertSource) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *fakeAlertSource) alert(e *AlertEvent) {
	s.mu.Lock()
	fns := make([]func(e *AlertEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
