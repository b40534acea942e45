package transport

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyw0ng95/recodex-broker/internal/reactor"
)

func TestRouterSocket_WildcardAddressBindsAllInterfaces(t *testing.T) {
	sock, err := NewRouterSocket("*", 0, zerolog.Nop())
	require.NoError(t, err)
	defer sock.Close()

	_, port, err := net.SplitHostPort(sock.listener.Addr().String())
	require.NoError(t, err)
	assert.NotEmpty(t, port)
}

func TestRouterSocket_ReceivesAndRepliesByIdentity(t *testing.T) {
	sock, err := NewRouterSocket("127.0.0.1", 0, zerolog.Nop())
	require.NoError(t, err)
	defer sock.Close()

	conn, err := net.Dial("tcp", sock.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	frame, err := sonic.Marshal(wireFrame{Data: []string{"init", "group1"}})
	require.NoError(t, err)
	_, err = conn.Write(append(frame, '\n'))
	require.NoError(t, err)

	var msg reactor.Message
	require.Eventually(t, func() bool {
		m, ok, err := sock.TryReceive()
		if err != nil || !ok {
			return false
		}
		msg = m
		return true
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"init", "group1"}, msg.Data)
	assert.NotEmpty(t, msg.Identity)

	require.NoError(t, sock.Send(reactor.NewMessage("", msg.Identity, "intro")))

	reader := bufio.NewReader(conn)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	line, err := reader.ReadBytes('\n')
	require.NoError(t, err)

	var reply wireFrame
	require.NoError(t, sonic.Unmarshal(line[:len(line)-1], &reply))
	assert.Equal(t, []string{"intro"}, reply.Data)
}

func TestRouterSocket_SendToUnknownPeerErrors(t *testing.T) {
	sock, err := NewRouterSocket("127.0.0.1", 0, zerolog.Nop())
	require.NoError(t, err)
	defer sock.Close()

	err = sock.Send(reactor.NewMessage("", "ghost-identity", "pong"))
	assert.ErrorIs(t, err, errUnknownPeer)
}

var _ reactor.Socket = (*RouterSocket)(nil)
