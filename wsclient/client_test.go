package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func wsEchoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}
}

func wsSilentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func dialURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientSendAndRecvRoundTrips(t *testing.T) {
	srv := httptest.NewServer(wsEchoHandler())
	defer srv.Close()

	client, err := Dial(context.Background(), dialURL(srv), nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send(Frame{Type: Text, Data: []byte("hello")}))

	frame, err := client.Recv(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(frame.Data))
}

func TestClientRecvTimesOutWhenNoFrameArrives(t *testing.T) {
	srv := httptest.NewServer(wsSilentHandler())
	defer srv.Close()

	client, err := Dial(context.Background(), dialURL(srv), nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Recv(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClientCloseWakesPendingReaders(t *testing.T) {
	srv := httptest.NewServer(wsSilentHandler())
	defer srv.Close()

	client, err := Dial(context.Background(), dialURL(srv), nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := client.Recv(context.Background(), 0)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, client.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not unblock after Close")
	}
}
