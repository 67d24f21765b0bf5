package dashboard

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/api"
	"staffdesk/internal/client"
	"staffdesk/internal/client/services"
	"staffdesk/internal/client/storage"
	"staffdesk/internal/models"
	"staffdesk/internal/testenv"
)

func TestSummarize(t *testing.T) {
	n := 7
	docs := &api.Envelope[[]models.Document]{Data: []models.Document{
		{VerificationStatus: models.DocumentPending},
		{VerificationStatus: models.DocumentPending},
		{VerificationStatus: models.DocumentVerified},
		{VerificationStatus: models.DocumentRejected},
	}}
	out := time.Now()
	locs := &api.Envelope[[]models.LocationCheckIn]{Count: &n, Data: []models.LocationCheckIn{
		{ID: "old", Status: models.CheckedOut, CheckOutTime: &out},
		{ID: "open", Status: models.CheckedIn, Address: "Gate 3"},
	}}
	emps := &api.Envelope[[]models.Employee]{Data: make([]models.Employee, 3)}

	admin := Summarize(true, emps, docs, locs)
	assert.Equal(t, Stats{
		TotalEmployees: 3, TotalDocuments: 4, PendingDocuments: 2,
		VerifiedDocuments: 1, RejectedDocuments: 1, TotalLocations: 7,
	}, admin.Stats)
	assert.Nil(t, admin.CurrentCheckIn)

	emp := Summarize(false, nil, docs, locs)
	assert.Zero(t, emp.Stats.TotalEmployees)
	require.NotNil(t, emp.CurrentCheckIn)
	assert.Equal(t, "open", emp.CurrentCheckIn.ID)

	empty := Summarize(false, nil, nil, nil)
	assert.Equal(t, Stats{}, empty.Stats)
}

func signIn(t *testing.T, b *testenv.Backend, email, password string) (*services.Services, storage.Storage) {
	t.Helper()
	st := storage.NewMemory()
	svc := services.New(client.New(b.URL, st))
	res, err := svc.Auth.Login(context.Background(), services.Credentials{Email: email, Password: password})
	require.NoError(t, err)
	require.NoError(t, st.Set(storage.KeyToken, res.Token))
	return svc, st
}

func TestLoad(t *testing.T) {
	b := testenv.Start(t)
	b.AddEmployee(t, "Jo", "jo@x.io", "secret1")
	b.AddEmployee(t, "Al", "al@x.io", "secret1")
	ctx := context.Background()

	jo, _ := signIn(t, b, "jo@x.io", "secret1")
	_, err := jo.Documents.Upload(ctx, services.DocumentUpload{Type: "ID", Name: "Passport", FileName: "p.pdf", Content: strings.NewReader("x")})
	require.NoError(t, err)
	doc, err := jo.Documents.Upload(ctx, services.DocumentUpload{Type: "Contract", FileName: "c.pdf", Content: strings.NewReader("y")})
	require.NoError(t, err)
	in, err := jo.Locations.CheckIn(ctx, services.CheckInRequest{Latitude: 1, Longitude: 2, Address: "Depot"})
	require.NoError(t, err)

	admin, _ := signIn(t, b, testenv.AdminEmail, testenv.AdminPassword)
	_, err = admin.Documents.Verify(ctx, doc.Data.ID, models.DocumentVerified)
	require.NoError(t, err)

	snap, err := (&Loader{Services: admin}).Load(ctx, true)
	require.NoError(t, err)
	assert.True(t, snap.Admin)
	assert.Equal(t, 2, snap.Stats.TotalEmployees)
	assert.Equal(t, 2, snap.Stats.TotalDocuments)
	assert.Equal(t, 1, snap.Stats.PendingDocuments)
	assert.Equal(t, 1, snap.Stats.VerifiedDocuments)
	assert.Equal(t, 1, snap.Stats.TotalLocations)
	assert.Nil(t, snap.CurrentCheckIn)

	snap, err = (&Loader{Services: jo}).Load(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, snap.Stats.TotalEmployees)
	require.NotNil(t, snap.CurrentCheckIn)
	assert.Equal(t, in.Data.ID, snap.CurrentCheckIn.ID)

	al, _ := signIn(t, b, "al@x.io", "secret1")
	snap, err = (&Loader{Services: al}).Load(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, snap.Stats.TotalDocuments)
	assert.Nil(t, snap.CurrentCheckIn)

	// An employee asking for the admin view fails on the employee list.
	_, err = (&Loader{Services: al}).Load(ctx, true)
	assert.Equal(t, 403, client.StatusOf(err))
}

func TestWatchReloadsOnStatusChange(t *testing.T) {
	b := testenv.Start(t)
	b.AddEmployee(t, "Jo", "jo@x.io", "secret1")
	svc, st := signIn(t, b, "jo@x.io", "secret1")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var snaps []*Snapshot
	done := make(chan struct{})
	go func() {
		defer close(done)
		(&Loader{Services: svc}).Watch(ctx, false, time.Hour, st, func(s *Snapshot, err error) {
			assert.NoError(t, err)
			snaps = append(snaps, s)
			switch len(snaps) {
			case 1:
				_, err := svc.Locations.CheckIn(ctx, services.CheckInRequest{Latitude: 1, Longitude: 2})
				assert.NoError(t, err)
				assert.NoError(t, st.Set(storage.KeyLocationStatusChanged, "1"))
			case 2:
				cancel()
			}
		})
	}()
	<-done

	require.Len(t, snaps, 2)
	assert.Nil(t, snaps[0].CurrentCheckIn)
	assert.NotNil(t, snaps[1].CurrentCheckIn)
}
