package app

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Telemed/internal/core"
	"github.com/dkeye/Telemed/internal/domain"
)

func participant(role domain.Role) core.Participant {
	return core.Participant{SID: core.SessionID(uuid.NewString()), Role: role}
}

func TestRegistry_Join_CreatesRoom(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.RoomID("42")

	// Given no room exists
	req.False(registry.Has(room))
	req.Empty(registry.List())

	// When a doctor joins
	doctor := participant(domain.RoleDoctor)
	registry.Join(room, doctor)

	// Then the room exists with one member stamped with the room id
	req.True(registry.Has(room))
	req.Equal(1, registry.Count(room))
	members := registry.Members(room)
	req.Len(members, 1)
	req.Equal(doctor.SID, members[0].SID)
	req.Equal(room, members[0].Room)
}

func TestRegistry_CountIsJoinsMinusLeaves(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.RoomID("42")

	joined := make([]core.Participant, 0, 5)
	for i := 0; i < 5; i++ {
		p := participant(domain.RolePatient)
		registry.Join(room, p)
		joined = append(joined, p)
	}
	for i := 0; i < 3; i++ {
		req.True(registry.Leave(room, joined[i].SID))
	}

	req.Equal(2, registry.Count(room))
	for _, p := range registry.Members(room) {
		req.NotEqual(joined[0].SID, p.SID)
		req.NotEqual(joined[1].SID, p.SID)
		req.NotEqual(joined[2].SID, p.SID)
	}
}

func TestRegistry_Leave_LastParticipantDeletesRoom(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.RoomID("42")
	doctor := participant(domain.RoleDoctor)
	patient := participant(domain.RolePatient)

	registry.Join(room, doctor)
	registry.Join(room, patient)

	// When one leaves the room stays
	registry.Leave(room, doctor.SID)
	req.True(registry.Has(room))

	// When the last one leaves the room is gone
	registry.Leave(room, patient.SID)
	req.False(registry.Has(room))
	req.Empty(registry.List())
}

func TestRegistry_Leave_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.RoomID("42")
	doctor := participant(domain.RoleDoctor)
	patient := participant(domain.RolePatient)
	registry.Join(room, doctor)
	registry.Join(room, patient)

	req.True(registry.Leave(room, doctor.SID))
	before := registry.List()

	// Leaving again changes nothing
	req.False(registry.Leave(room, doctor.SID))
	req.False(registry.Leave(domain.RoomID("missing"), doctor.SID))
	req.Equal(before, registry.List())
}

func TestRegistry_Join_SameSessionReplaces(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.RoomID("42")
	p := participant(domain.RoleDoctor)

	registry.Join(room, p)
	registry.Join(room, p)

	req.Equal(1, registry.Count(room))
}

func TestRegistry_PeersExcept(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.RoomID("42")
	doctor := participant(domain.RoleDoctor)
	patient := participant(domain.RolePatient)
	registry.Join(room, doctor)
	registry.Join(room, patient)

	peers := registry.PeersExcept(room, doctor.SID)
	req.Len(peers, 1)
	req.Equal(patient.SID, peers[0].SID)

	req.NotNil(registry.PeersExcept(domain.RoomID("missing"), doctor.SID))
	req.Empty(registry.PeersExcept(domain.RoomID("missing"), doctor.SID))
}

func TestRegistry_SnapshotsAreIsolated(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.RoomID("42")
	doctor := participant(domain.RoleDoctor)
	registry.Join(room, doctor)

	// Given a snapshot taken before another join
	snapshot := registry.Members(room)

	// When the room changes and the snapshot is mutated
	registry.Join(room, participant(domain.RolePatient))
	snapshot[0].Role = domain.RolePatient

	// Then neither affects the other
	req.Len(snapshot, 1)
	req.Equal(domain.RoleDoctor, registry.Members(room)[0].Role)
}

func TestRegistry_JoinIf_RejectionLeavesNoTrace(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.RoomID("42")
	refused := errors.New("refused")

	err := registry.JoinIf(room, participant(domain.RoleDoctor), func([]core.Participant) error { return refused })

	req.ErrorIs(err, refused)
	req.False(registry.Has(room))
}

func TestRegistry_List(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Join("b", participant(domain.RoleDoctor))
	registry.Join("a", participant(domain.RoleDoctor))
	registry.Join("a", participant(domain.RolePatient))

	list := registry.List()

	req.Len(list, 2)
	req.Equal(domain.RoomID("a"), list[0].ID)
	req.Equal(2, list[0].Count)
	req.ElementsMatch([]domain.Role{domain.RoleDoctor, domain.RolePatient}, list[0].Roles)
	req.Equal(domain.RoomID("b"), list[1].ID)
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	var wg conc.WaitGroup
	for i := 0; i < 64; i++ {
		room := domain.RoomID(fmt.Sprintf("room-%d", i%8))
		wg.Go(func() {
			for j := 0; j < 50; j++ {
				p := participant(domain.RoleDoctor)
				registry.Join(room, p)
				_ = registry.PeersExcept(room, p.SID)
				_ = registry.List()
				registry.Leave(room, p.SID)
			}
		})
	}
	wg.Wait()

	// No ghost rooms survive the churn
	req.Empty(registry.List())
}
