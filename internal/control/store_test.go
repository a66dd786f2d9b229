package control

import (
	"testing"
)

func TestInMemoryStore_GetSetDelete(t *testing.T) {
	store := NewInMemoryStore()

	if _, ok := store.GetSession(SessionID("s1")); ok {
		t.Error("expected not found for empty store")
	}

	sess := &Session{ID: SessionID("s1")}
	store.SetSession(sess)

	got, ok := store.GetSession(SessionID("s1"))
	if !ok || got != sess {
		t.Errorf("GetSession: ok=%v, got %p want %p", ok, got, sess)
	}
	if ids := store.ListSessionIDs(); len(ids) != 1 || ids[0] != "s1" {
		t.Errorf("ListSessionIDs: got %v", ids)
	}

	store.DeleteSession(SessionID("s1"))
	if _, ok := store.GetSession(SessionID("s1")); ok {
		t.Error("expected session gone after DeleteSession")
	}
}
