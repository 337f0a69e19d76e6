package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fatura/internal/client"
	fhttp "fatura/internal/http"
	"fatura/internal/ledger/memory"
	"fatura/internal/services"
	"fatura/internal/session"
)

type cliEnv struct {
	t           *testing.T
	url         string
	sessionFile string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	store := memory.New()
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	ledgerSvc := services.NewLedgerService(store, services.WithClock(func() time.Time { return now }))
	authSvc := services.NewAuthService(store, session.NewStore(100, time.Hour)).WithHashCost(bcrypt.MinCost)

	s := fhttp.NewServer(fhttp.Options{Addr: ":0", Ledger: ledgerSvc, Auth: authSvc, RateLimitPerMinute: 1000})
	srv := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = s.Shutdown(context.Background())
	})
	return &cliEnv{t: t, url: srv.URL, sessionFile: filepath.Join(t.TempDir(), "session.json")}
}

// run executes faturactl with args against the test server.
func (e *cliEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	return execute(stdin, append([]string{"--api-url", e.url, "--session-file", e.sessionFile}, args...)...)
}

func execute(stdin string, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	require.NoError(e.t, err, describeError(errOrNil(err)))
	return out
}

func errOrNil(err error) error {
	if err == nil {
		return fmt.Errorf("no error")
	}
	return err
}

func (e *cliEnv) signIn() {
	e.t.Helper()
	_, err := e.run("secret123\n", "signup", "--name", "Maria Silva", "--username", "maria",
		"--email", "maria@example.com", "--doc", "12345678909", "--password-stdin")
	require.NoError(e.t, err)
	out, err := e.run("", "signin", "-u", "maria", "--password", "secret123")
	require.NoError(e.t, err)
	require.Contains(e.t, out, "Signed in as maria")
}

func readCSV(t *testing.T, out string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestPreviewAllocate(t *testing.T) {
	out, err := execute("", "preview", "allocate", "100", "3", "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"#", "Value"},
		{"1/3", "33.33"},
		{"2/3", "33.33"},
		{"3/3", "33.34"},
		{"Total", "100.00"},
	}, readCSV(t, out))

	_, err = execute("", "preview", "allocate", "100", "37")
	assert.Error(t, err)
}

func TestPreviewPlan(t *testing.T) {
	out, err := execute("", "preview", "plan", "--billing-start", "10", "--due-day", "17",
		"--date", "2025-10-09", "-n", "3", "-v", "100", "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"#", "Start", "End", "Due", "Value"},
		{"1/3", "2025-09-10", "2025-10-10", "2025-10-17", "33.33"},
		{"2/3", "2025-10-10", "2025-11-10", "2025-11-17", "33.33"},
		{"3/3", "2025-11-10", "2025-12-10", "2025-12-17", "33.34"},
		{"Total", "", "", "", "100.00"},
	}, readCSV(t, out))
}

func TestPreviewTextOutput(t *testing.T) {
	out, err := execute("", "preview", "allocate", "1210.50", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "R$ 605,25")
	assert.Contains(t, out, "R$ 1.210,50")
	assert.NotContains(t, out, "\x1b[", "output to a buffer is never colored")
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute("", "preview", "allocate", "10", "1", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestLedgerWorkflow(t *testing.T) {
	e := newCLIEnv(t)
	e.signIn()

	out := e.mustRun("card", "create", "--nickname", "Roxinho", "--bank", "Nubank", "--end-numbers", "1234",
		"--due-day", "17", "--billing-start", "10", "--billing-end", "9", "--limit", "5000")
	var cardID int64
	_, err := fmt.Sscanf(out, "Card %d", &cardID)
	require.NoError(t, err)

	out = e.mustRun("purchase", "add", "--card", fmt.Sprint(cardID), "-d", "Geladeira", "-c", "Casa",
		"-v", "3600", "-n", "3", "--date", "2025-10-12")
	assert.Contains(t, out, "3 installments, 0 paid")

	records := readCSV(t, e.mustRun("invoice", "current", fmt.Sprint(cardID), "-o", "csv"))
	assert.Equal(t, [][]string{
		{"Date", "Description", "Category", "Inst.", "Value"},
		{"2025-10-12", "Geladeira", "Casa", "1/3", "1200.00"},
		{"Total", "", "", "", "1200.00"},
	}, records)

	records = readCSV(t, e.mustRun("panel", "-o", "csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"3600.00", "1400.00", "5000.00"}, records[1][4:7])

	records = readCSV(t, e.mustRun("card", "show", fmt.Sprint(cardID), "-o", "csv"))
	require.Len(t, records, 4, "one invoice per installment")
	firstInvoice := records[1][0]
	assert.Equal(t, "OPEN", records[1][4])

	out = e.mustRun("invoice", "status", firstInvoice, "paid")
	assert.Contains(t, out, "is now PAID")

	out = e.mustRun("invoice", "estimate", firstInvoice, "1000")
	assert.Contains(t, out, "R$ 1.000,00")

	out = e.mustRun("invoice", "show", firstInvoice, "--categories")
	assert.Contains(t, out, "PAID")
	assert.Contains(t, out, "Casa")

	records = readCSV(t, e.mustRun("panel", "-o", "csv"))
	assert.Equal(t, "2400.00", records[1][4], "paid invoices no longer use the limit")
}

func TestUpdateKeepsUnchangedFields(t *testing.T) {
	e := newCLIEnv(t)
	e.signIn()

	out := e.mustRun("card", "create", "--nickname", "Azul", "--bank", "Itaú", "--end-numbers", "9876",
		"--due-day", "5", "--billing-start", "28", "--billing-end", "27", "--limit", "1000")
	var cardID int64
	_, err := fmt.Sscanf(out, "Card %d", &cardID)
	require.NoError(t, err)

	e.mustRun("card", "update", fmt.Sprint(cardID), "--nickname", "Azulzinho")
	out = e.mustRun("card", "show", fmt.Sprint(cardID))
	assert.Contains(t, out, "Azulzinho (Itaú •••• 9876)")
	assert.Contains(t, out, "day 28 to day 27, due on day 5")

	out = e.mustRun("purchase", "add", "--card", fmt.Sprint(cardID), "-d", "Curso", "-c", "Educação",
		"-v", "300", "--date", "2025-10-01")
	var purchaseID int64
	_, err = fmt.Sscanf(out, "Purchase: %d", &purchaseID)
	require.NoError(t, err)

	out = e.mustRun("purchase", "update", fmt.Sprint(purchaseID), "-n", "2")
	assert.Contains(t, out, "Curso")
	assert.Contains(t, out, "2 installments")

	out = e.mustRun("purchase", "delete", fmt.Sprint(purchaseID))
	assert.Contains(t, out, "deleted")

	_, err = e.run("", "purchase", "show", fmt.Sprint(purchaseID))
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestInteractiveSignUpAsksUntilValid(t *testing.T) {
	e := newCLIEnv(t)

	stdin := strings.Join([]string{
		"123", "12345678909", // doc
		"Maria Silva",
		"maria",
		"not-an-email", "maria@example.com",
		"secret123",
		"other", "secret123", // confirmPassword
	}, "\n") + "\n"
	out, err := e.run(stdin, "signup", "--interactive")
	require.NoError(t, err)
	assert.Contains(t, out, `Account "maria" created for Maria Silva`)

	out, err = e.run("", "signin", "-u", "maria", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as maria")
}

func TestInteractiveSignUpRetriesTakenUsername(t *testing.T) {
	e := newCLIEnv(t)
	e.signIn()

	out, err := e.run("maria\nsecret123\nsecret123\njoana\n", "signup", "-i",
		"--name", "Joana Souza", "--email", "joana@example.com", "--doc", "98765432100")
	require.NoError(t, err)
	assert.Contains(t, out, `Account "joana" created`)

	_, err = e.run("maria\nsecret123\n", "signup", "-i",
		"--name", "Joana Souza", "--email", "joana@example.com", "--doc", "98765432100")
	assert.EqualError(t, err, "Confirm password: input ended")
}

func TestErrorsAreDescribed(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run("", "panel")
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Contains(t, describeError(err), "faturactl signin")

	e.signIn()
	_, err = e.run("", "card", "create", "--nickname", "Sem banco")
	require.Error(t, err)
	var verr *client.ValidationError
	require.ErrorAs(t, err, &verr)
	msg := describeError(err)
	assert.Contains(t, msg, "bank:")
	assert.Contains(t, msg, "endNumbers:")

	e.mustRun("logout")
	_, err = e.run("", "panel")
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	_, err = e.run("", "signin", "-u", "maria")
	assert.EqualError(t, err, "--password or --password-stdin is required")
}

func TestDescribeTransportError(t *testing.T) {
	_, err := execute("", "--api-url", "http://127.0.0.1:1", "--session-file",
		filepath.Join(t.TempDir(), "s.json"), "--timeout", "2s", "panel")
	require.Error(t, err)
	assert.Contains(t, describeError(err), "cannot reach the server")
}
