package live

import (
	"strconv"
	"sync"
	"testing"

	"github.com/ashureev/quizlabs/internal/game"
	"github.com/coder/websocket"
)

func TestConnManager_Register(t *testing.T) {
	cm := NewConnManager()
	conn := &websocket.Conn{}
	key := game.Key{UserID: "user123", SessionID: "tab-1"}

	cm.Register(key, conn)

	if active := cm.GetActive(key); active != conn {
		t.Errorf("Expected connection %v, got %v", conn, active)
	}
	if cm.Len() != 1 {
		t.Errorf("Expected 1 connection, got %d", cm.Len())
	}
}

func TestConnManager_Unregister(t *testing.T) {
	cm := NewConnManager()
	conn := &websocket.Conn{}
	key := game.Key{UserID: "user123", SessionID: "tab-1"}

	cm.Register(key, conn)
	cm.Unregister(key, conn)

	if active := cm.GetActive(key); active != nil {
		t.Errorf("Expected nil connection, got %v", active)
	}
	if cm.Len() != 0 {
		t.Errorf("Expected 0 connections, got %d", cm.Len())
	}
}

func TestConnManager_UnregisterStale(t *testing.T) {
	cm := NewConnManager()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}
	tab1 := game.Key{UserID: "user123", SessionID: "tab-1"}
	tab2 := game.Key{UserID: "user123", SessionID: "tab-2"}

	cm.Register(tab1, conn1)
	cm.Register(tab2, conn2)

	// A stale unregister for the other tab must not touch this one.
	cm.Unregister(tab2, conn1)
	cm.Unregister(tab1, conn1)

	if active := cm.GetActive(tab2); active != conn2 {
		t.Errorf("Expected connection %v, got %v", conn2, active)
	}
}

func TestConnManager_ConcurrentAccess(t *testing.T) {
	cm := NewConnManager()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			cm.Register(game.Key{UserID: "concurrentUser", SessionID: "tab-" + strconv.Itoa(i)}, &websocket.Conn{})
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			cm.GetActive(game.Key{UserID: "concurrentUser", SessionID: "tab-" + strconv.Itoa(i)})
		}
	}()

	wg.Wait()
	if cm.Len() != 1000 {
		t.Errorf("Expected 1000 connections, got %d", cm.Len())
	}
}
