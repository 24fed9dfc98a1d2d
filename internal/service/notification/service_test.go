package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository/memory"
	"github.com/jwalitptl/vetclinic-api/pkg/messaging"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendCustom(ctx context.Context, to, subject, content string) error {
	return m.Called(ctx, to, subject, content).Error(0)
}

func message(t *testing.T, eventType string, payload interface{}) messaging.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return messaging.Message{ID: uuid.NewString(), Type: eventType, Payload: raw}
}

func TestHandleMessageEmailsTheRightPerson(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	requester := &model.Staff{Base: model.Base{ID: uuid.New()}, Name: "Ana", Email: "ana@clinic.test"}
	target := &model.Staff{Base: model.Base{ID: uuid.New()}, Name: "Ben", Email: "ben@clinic.test"}
	store.PutStaff(requester)
	store.PutStaff(target)

	mailer := &mockMailer{}
	mailer.On("SendCustom", mock.Anything, "ben@clinic.test", "New shift transfer request", mock.Anything).Return(nil).Once()
	mailer.On("SendCustom", mock.Anything, "ana@clinic.test", "Shift transfer accepted", mock.Anything).Return(nil).Once()

	svc := NewService(memory.NewStaffRepository(store), mailer, nil)
	evt := model.TransferEvent{
		TransferID:        uuid.New(),
		RequestingStaffID: requester.ID,
		SourceShiftID:     uuid.New(),
		TargetShiftID:     uuid.New(),
		TargetStaffID:     &target.ID,
	}

	require.NoError(t, svc.HandleMessage(ctx, message(t, model.EventTransferRequested, evt)))
	require.NoError(t, svc.HandleMessage(ctx, message(t, model.EventTransferAccepted, evt)))
	mailer.AssertExpectations(t)
}

func TestHandleMessageSkips(t *testing.T) {
	ctx := context.Background()
	mailer := &mockMailer{}
	svc := NewService(memory.NewStaffRepository(memory.NewStore()), mailer, nil)

	// Other event types are not for us.
	require.NoError(t, svc.HandleMessage(ctx, message(t, model.EventDiscountRedeemed, model.DiscountRedeemedEvent{})))

	// Unassigned target has nobody to tell.
	require.NoError(t, svc.HandleMessage(ctx, message(t, model.EventTransferRequested, model.TransferEvent{TransferID: uuid.New()})))

	// Recipient missing from the directory.
	require.NoError(t, svc.HandleMessage(ctx, message(t, model.EventTransferRejected, model.TransferEvent{RequestingStaffID: uuid.New()})))

	mailer.AssertNotCalled(t, "SendCustom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessageReportsMailerErrors(t *testing.T) {
	store := memory.NewStore()
	staff := &model.Staff{Base: model.Base{ID: uuid.New()}, Email: "x@clinic.test"}
	store.PutStaff(staff)

	mailer := &mockMailer{}
	mailer.On("SendCustom", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := NewService(memory.NewStaffRepository(store), mailer, nil)
	err := svc.HandleMessage(context.Background(), message(t, model.EventTransferRejected, model.TransferEvent{RequestingStaffID: staff.ID}))
	assert.EqualError(t, err, "smtp down")

	bad := messaging.Message{Type: model.EventTransferAccepted, Payload: []byte(`"nope"`)}
	assert.Error(t, svc.HandleMessage(context.Background(), bad))
}
