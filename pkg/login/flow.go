package login

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"xhstoolbox/pkg/errors"
	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/xhs"
)

// DefaultPollInterval is the time between two status checks
const DefaultPollInterval = 2 * time.Second

var (
	// ErrExpired is returned by Wait when the QR code expired
	ErrExpired = stderrors.New("qr code expired")
	// ErrStopped is returned when the attempt was stopped or replaced
	ErrStopped = stderrors.New("login attempt stopped")
)

// API is the part of the backend client the flow needs
type API interface {
	InitGuest(ctx context.Context) (*xhs.GuestInit, error)
	CreateQRCode(ctx context.Context) (*xhs.QRCode, error)
	QRCodeStatus(ctx context.Context, qrID string) (*xhs.QRStatus, error)
}

// Options configures a Flow. Callbacks run on the flow's goroutines and
// must not call Start, Refresh or Stop.
type Options struct {
	PollInterval time.Duration
	// OnStatus is called on every status change
	OnStatus func(Status)
	// OnNotice receives backend error messages meant for the user
	OnNotice func(string)
	// OnLogin is called once per confirmed attempt
	OnLogin func(*xhs.UserInfo)
	Logger  logger.Logger
}

// Flow drives one QR login attempt at a time. Each attempt owns a single
// cancelable poll task; starting a new attempt cancels and joins the old
// task before the new one is armed.
type Flow struct {
	api      API
	interval time.Duration
	onStatus func(Status)
	onNotice func(string)
	onLogin  func(*xhs.UserInfo)
	logger   logger.Logger

	// serialises Start and Refresh
	startMu sync.Mutex

	mu      sync.Mutex
	gen     uint64
	status  Status
	stopped bool
	qr      *xhs.QRCode
	user    *xhs.UserInfo
	attempt string
	cancel  context.CancelFunc
	done    chan struct{}
	changed chan struct{}
}

// NewFlow creates a flow in the loading state
func NewFlow(api API, opts Options) *Flow {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Flow{
		api:      api,
		interval: interval,
		onStatus: opts.OnStatus,
		onNotice: opts.OnNotice,
		onLogin:  opts.OnLogin,
		logger:   logger.OrGlobal(opts.Logger).WithField("component", "login"),
		status:   StatusLoading,
		changed:  make(chan struct{}),
	}
}

// Start begins a new attempt: guest credentials, then a QR code, then
// polling. Any previous attempt is stopped first. A failure to obtain a QR
// code leaves the flow expired and is returned.
func (f *Flow) Start(ctx context.Context) error {
	f.startMu.Lock()
	defer f.startMu.Unlock()

	f.halt(false)

	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.attempt = uuid.NewString()
	f.qr = nil
	f.user = nil
	f.stopped = false
	log := f.logger.WithField("attempt", f.attempt)
	f.mu.Unlock()

	f.apply(gen, StatusLoading, nil)
	log.Debug("Starting QR login")

	if err := f.initGuest(ctx, log); err != nil {
		f.apply(gen, StatusExpired, nil)
		return err
	}

	qr, err := f.api.CreateQRCode(ctx)
	if err == nil && (qr == nil || !qr.Success || qr.QRURL == "") {
		msg := ""
		if qr != nil {
			msg = qr.Error
		}
		if msg == "" {
			msg = "failed to create QR code"
		}
		f.notice(msg)
		err = errors.New(errors.ErrorTypeBackend, 0, "%s", msg)
	}
	if err != nil {
		log.WithError(err).Warn("QR code creation failed")
		f.apply(gen, StatusExpired, nil)
		return err
	}

	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	f.mu.Lock()
	if f.gen != gen {
		// Stop ran while the code was being created
		f.mu.Unlock()
		cancel()
		return ErrStopped
	}
	f.qr = qr
	f.cancel = cancel
	f.done = done
	f.mu.Unlock()

	log.InfoWithFields("QR code issued", map[string]interface{}{
		"qr_id": qr.QRID,
	})
	f.apply(gen, StatusWaiting, nil)

	go f.poll(pollCtx, gen, qr.QRID, log, done)
	return nil
}

// Refresh discards the current QR code and starts over
func (f *Flow) Refresh(ctx context.Context) error {
	return f.Start(ctx)
}

// Stop cancels polling and waits for the poll task to exit. Waiters of a
// non-terminal attempt get ErrStopped.
func (f *Flow) Stop() {
	f.halt(true)
}

func (f *Flow) halt(markStopped bool) {
	f.mu.Lock()
	f.gen++
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	if markStopped && !f.status.IsTerminal() {
		f.stopped = true
		f.broadcastLocked()
	}
	f.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Status returns the current status
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// QRCode returns the QR session of the current attempt, nil while loading
func (f *Flow) QRCode() *xhs.QRCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.qr
}

// Polling reports whether a poll task is armed
func (f *Flow) Polling() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

// Wait blocks until the current attempt is confirmed, expires or is
// stopped. A refresh while waiting keeps waiting on the new attempt.
func (f *Flow) Wait(ctx context.Context) (*xhs.UserInfo, error) {
	for {
		f.mu.Lock()
		switch {
		case f.status == StatusConfirmed:
			user := f.user
			f.mu.Unlock()
			return user, nil
		case f.status == StatusExpired:
			f.mu.Unlock()
			return nil, ErrExpired
		case f.stopped:
			f.mu.Unlock()
			return nil, ErrStopped
		}
		changed := f.changed
		f.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (f *Flow) initGuest(ctx context.Context, log logger.Logger) error {
	res, err := f.api.InitGuest(ctx)
	if err != nil {
		log.WithError(err).Warn("Guest initialisation failed")
		f.notice("failed to reach the backend")
		return err
	}
	if res != nil && !res.Success {
		// The QR endpoint may still work without guest cookies.
		log.WarnWithFields("Guest initialisation rejected", map[string]interface{}{
			"error": res.Error,
		})
	}
	return nil
}

func (f *Flow) poll(ctx context.Context, gen uint64, qrID string, log logger.Logger, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	log = log.WithField("qr_id", qrID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		res, err := f.api.QRCodeStatus(ctx, qrID)
		if ctx.Err() != nil {
			return
		}

		status := f.resolve(res, err, log)
		var user *xhs.UserInfo
		if status == StatusConfirmed {
			user = UserFrom(res)
		}
		if !f.apply(gen, status, user) {
			return
		}
		if status.IsTerminal() {
			f.finish(gen)
			return
		}
	}
}

// resolve turns one poll answer into a status. Transport failures and
// unknown codes keep the flow waiting.
func (f *Flow) resolve(res *xhs.QRStatus, err error, log logger.Logger) Status {
	if err != nil {
		log.WithError(err).Warn("QR status poll failed")
		return StatusWaiting
	}
	if res == nil {
		return StatusWaiting
	}
	if res.Error != "" {
		log.WarnWithFields("QR status reported an error", map[string]interface{}{
			"error": res.Error,
		})
		f.notice(res.Error)
	}
	status, ok := StatusOf(res)
	if !ok {
		log.WarnWithFields("Unknown QR status", map[string]interface{}{
			"code_status": string(res.CodeStatus),
			"status":      res.Status,
		})
	}
	return status
}

// apply records status for attempt gen. It returns false when gen is no
// longer the current attempt.
func (f *Flow) apply(gen uint64, status Status, user *xhs.UserInfo) bool {
	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return false
	}
	changed := f.status != status
	f.status = status
	confirmed := status == StatusConfirmed && f.user == nil && user != nil
	if confirmed {
		f.user = user
	}
	if changed || confirmed {
		f.broadcastLocked()
	}
	f.mu.Unlock()

	if changed && f.onStatus != nil {
		f.onStatus(status)
	}
	if confirmed && f.onLogin != nil {
		f.onLogin(user)
	}
	return true
}

// finish disarms the poll task of gen after it reached a terminal state
func (f *Flow) finish(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen || f.cancel == nil {
		return
	}
	f.cancel()
	f.cancel, f.done = nil, nil
}

func (f *Flow) notice(msg string) {
	if f.onNotice != nil {
		f.onNotice(msg)
	}
}

func (f *Flow) broadcastLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}
