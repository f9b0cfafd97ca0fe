package b2bua

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebas/legbridge/internal/signaling/events"
)

type forwardFixture struct {
	svc     *Service
	factory *fakeFactory
	src     *fakeAlertSource
	closer  *closeCounter
	pub     *events.MemoryPublisher
}

func newForwardFixture() *forwardFixture {
	f := &forwardFixture{
		factory: &fakeFactory{},
		src:     newFakeAlertSource(),
		closer:  &closeCounter{},
		pub:     events.NewMemoryPublisher(),
	}
	f.svc = NewService(ServiceConfig{
		Factory:   f.factory,
		Closer:    f.closer,
		Publisher: f.pub,
	})
	return f
}

func inboundAlert(dest string) (*fakeLeg, *AlertEvent) {
	in := newFakeLeg("in-1", ClientTypeUser)
	return in, &AlertEvent{
		Call:        in,
		Destination: dest,
		CallerID:    "+15551112222",
		DisplayName: "Alice",
		Scheme:      "webrtc",
	}
}

func TestForwardToPSTN_EndToEnd(t *testing.T) {
	f := newForwardFixture()
	sub, err := f.svc.ForwardToPSTN(f.src, WithNumberTransform(PrefixTransform("00", "+")))
	require.NoError(t, err)
	assert.Equal(t, ForwardPSTN, sub.Kind())

	in, alert := inboundAlert("+15550001234")
	f.src.alert(alert)

	require.Len(t, f.factory.pstn, 1)
	req := f.factory.pstn[0]
	assert.Equal(t, "+15550001234", req.Number)
	assert.Equal(t, alert.CallerID, req.CallerID)
	assert.Equal(t, PSTNOptions{}, req.Opts)

	out := f.factory.lastLeg()
	require.NotNil(t, out)
	out.fire(EventConnected)

	assert.Empty(t, in.Calls("AnswerDirect"))
	answers := in.Calls("Answer")
	require.Len(t, answers, 1)
	assert.Equal(t, out.DisplayName(), answers[0].Params.DisplayName)

	created := f.pub.OfType(events.BridgeCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "pstn", created[0].(*events.BridgeCreatedEvent).Forward)
}

func TestForwardToPSTN_TransformRewritesNumber(t *testing.T) {
	f := newForwardFixture()
	_, err := f.svc.ForwardToPSTN(f.src,
		WithNumberTransform(PrefixTransform("00", "+")),
		WithCallerID("+15559990000"),
		WithFollowDiversion(true),
	)
	require.NoError(t, err)

	_, alert := inboundAlert("0015550001234")
	f.src.alert(alert)

	require.Len(t, f.factory.pstn, 1)
	req := f.factory.pstn[0]
	assert.Equal(t, "+15550001234", req.Number)
	assert.Equal(t, "+15559990000", req.CallerID)
	assert.Equal(t, PSTNOptions{CallerID: "+15559990000", FollowDiversion: true}, req.Opts)
}

func TestForwardToPSTN_TransformErrorAborts(t *testing.T) {
	f := newForwardFixture()
	boom := errors.New("unroutable")
	_, err := f.svc.ForwardToPSTN(f.src, WithNumberTransform(func(string) (string, error) {
		return "", boom
	}))
	require.NoError(t, err)

	in, alert := inboundAlert("12")
	f.src.alert(alert)

	assert.Empty(t, f.factory.pstn)
	assert.Zero(t, in.CallCount())
	assert.Equal(t, 1, f.closer.Count())
	assert.Equal(t, 0, f.svc.ActiveBridges())

	failed := f.pub.OfType(events.ForwardFailed)
	require.Len(t, failed, 1)
	ev := failed[0].(*events.ForwardFailedEvent)
	assert.Equal(t, "transform", ev.Stage)
	assert.Equal(t, "12", ev.Destination)
	assert.Contains(t, ev.Error, "unroutable")
}

func TestForward_FactoryErrorAborts(t *testing.T) {
	f := newForwardFixture()
	f.factory.err = errors.New("no trunk")
	_, err := f.svc.ForwardToUser(f.src)
	require.NoError(t, err)

	_, alert := inboundAlert("bob")
	f.src.alert(alert)

	assert.Equal(t, 1, f.closer.Count())
	failed := f.pub.OfType(events.ForwardFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "create_leg", failed[0].(*events.ForwardFailedEvent).Stage)
}

func TestForward_AlreadyBridgedAborts(t *testing.T) {
	f := newForwardFixture()
	_, err := f.svc.ForwardToUser(f.src)
	require.NoError(t, err)

	_, alert := inboundAlert("bob")
	f.src.alert(alert)
	f.src.alert(alert)

	assert.Equal(t, 1, f.svc.ActiveBridges())
	failed := f.pub.OfType(events.ForwardFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "bridge", failed[0].(*events.ForwardFailedEvent).Stage)
}

func TestForwardToUser(t *testing.T) {
	f := newForwardFixture()
	_, err := f.svc.ForwardToUser(f.src, WithVideo(true), WithExtraHeaders(Headers{"X-Tenant": "acme"}))
	require.NoError(t, err)

	_, alert := inboundAlert("bob")
	f.src.alert(alert)

	require.Len(t, f.factory.users, 1)
	req := f.factory.users[0]
	assert.Equal(t, userRequest{
		Username:    "bob",
		CallerID:    alert.CallerID,
		DisplayName: "Alice",
		Headers:     Headers{"X-Tenant": "acme"},
		Video:       true,
		Scheme:      "webrtc",
	}, req)

	br, ok := f.svc.BridgeFor(alert.Call)
	require.True(t, ok)
	assert.False(t, br.Direct())
}

func TestForwardToUserDirect(t *testing.T) {
	f := newForwardFixture()
	_, err := f.svc.ForwardToUserDirect(f.src)
	require.NoError(t, err)

	in, alert := inboundAlert("bob")
	f.src.alert(alert)

	require.Len(t, f.factory.direct, 1)
	req := f.factory.direct[0]
	assert.Same(t, in, req.Ctx)
	assert.Equal(t, "bob", req.Username)
	assert.Equal(t, DirectUserOptions{CallerID: alert.CallerID, DisplayName: "Alice"}, req.Opts)

	f.factory.lastLeg().fire(EventConnected)
	assert.Empty(t, in.Calls("Answer"))
	assert.Len(t, in.Calls("AnswerDirect"), 1)
}

func TestForwardToSIP(t *testing.T) {
	f := newForwardFixture()
	_, err := f.svc.ForwardToSIP(f.src, WithVideo(true))
	require.NoError(t, err)

	_, alert := inboundAlert("")
	alert.ToURI = "sip:bob@example.com"
	f.src.alert(alert)

	require.Len(t, f.factory.sips, 1)
	req := f.factory.sips[0]
	assert.Equal(t, "sip:bob@example.com", req.URI)
	assert.Equal(t, alert.CallerID, req.CallerID)
	assert.True(t, req.Video)
}

func TestForwardToSIP_InvalidURI(t *testing.T) {
	f := newForwardFixture()
	_, err := f.svc.ForwardToSIP(f.src)
	require.NoError(t, err)

	_, alert := inboundAlert("")
	f.src.alert(alert)

	assert.Empty(t, f.factory.sips)
	assert.Equal(t, 1, f.closer.Count())

	_, err = normalizeSIPURI("sip:")
	assert.ErrorIs(t, err, ErrInvalidURI)
}

func TestForward_CallbackReachesBridge(t *testing.T) {
	f := newForwardFixture()
	var established int
	_, err := f.svc.ForwardToUser(f.src, WithOnEstablished(func(a, b Leg) { established++ }))
	require.NoError(t, err)

	in, alert := inboundAlert("bob")
	f.src.alert(alert)
	in.fire(EventConnected)
	in.fire(EventConnected)

	assert.Equal(t, 1, established)
}

func TestForward_OncePerAlert(t *testing.T) {
	f := newForwardFixture()
	_, err := f.svc.ForwardToUser(f.src)
	require.NoError(t, err)

	for _, id := range []string{"in-1", "in-2", "in-3"} {
		in := newFakeLeg(id, ClientTypeUser)
		f.src.alert(&AlertEvent{Call: in, Destination: "bob"})
	}

	assert.Len(t, f.factory.users, 3)
	assert.Equal(t, 3, f.svc.ActiveBridges())
}

func TestSubscription_Close(t *testing.T) {
	f := newForwardFixture()
	sub, err := f.svc.ForwardToUser(f.src)
	require.NoError(t, err)
	require.Equal(t, 1, f.src.Subscribers())

	sub.Close()
	sub.Close()

	assert.True(t, sub.Closed())
	assert.Zero(t, f.src.Subscribers())

	_, alert := inboundAlert("bob")
	f.src.alert(alert)
	assert.Empty(t, f.factory.users)
}

func TestForward_Errors(t *testing.T) {
	svc := NewService(ServiceConfig{})
	_, err := svc.ForwardToPSTN(newFakeAlertSource())
	assert.ErrorIs(t, err, ErrNoFactory)

	f := newForwardFixture()
	_, err = f.svc.ForwardToUser(nil)
	assert.Error(t, err)

	_, err = f.svc.Forward(ForwardKind("carrier-pigeon"), f.src)
	assert.Error(t, err)

	sub, err := f.svc.Forward(ForwardSIP, f.src)
	require.NoError(t, err)
	assert.Equal(t, ForwardSIP, sub.Kind())
}

func TestForwardError(t *testing.T) {
	cause := errors.New("no route")
	err := &ForwardError{Kind: ForwardPSTN, Stage: StageCreateLeg, Destination: "+1555", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "forward pstn to +1555: create_leg: no route", err.Error())
}
