package earnapp

import "context"

// Timeframes accepted by Usage.
const (
	TimeframeDaily   = "daily"
	TimeframeWeekly  = "weekly"
	TimeframeMonthly = "monthly"
)

// DefaultPaymentMethod is the payout method RedeemDetails uses when none is given.
const DefaultPaymentMethod = "paypal.com"

// ValidTimeframe reports whether step is a timeframe Usage accepts.
func ValidTimeframe(step string) bool {
	switch step {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly:
		return true
	}
	return false
}

// UserData returns the profile of the logged-in user.
func (s *Session) UserData(ctx context.Context) (*Result, error) {
	return s.Call(ctx, EndpointUserData, nil)
}

// Money returns balance, payout method and related account money data.
func (s *Session) Money(ctx context.Context) (*Result, error) {
	return s.Call(ctx, EndpointMoney, nil)
}

// Devices returns every device with its rate and earnings.
func (s *Session) Devices(ctx context.Context) (*Result, error) {
	return s.Call(ctx, EndpointDevices, nil)
}

// AppVersions returns the latest app version per platform.
func (s *Session) AppVersions(ctx context.Context) (*Result, error) {
	return s.Call(ctx, EndpointDownloads, nil)
}

func (s *Session) PaymentMethods(ctx context.Context) (*Result, error) {
	return s.Call(ctx, EndpointPaymentMethods, nil)
}

// Transactions returns past payouts and their status.
func (s *Session) Transactions(ctx context.Context) (*Result, error) {
	return s.Call(ctx, EndpointTransactions, nil)
}

func (s *Session) LinkDevice(ctx context.Context, deviceID string) (*Result, error) {
	return s.Call(ctx, EndpointLinkDevice, Args{ArgDevice: deviceID})
}

func (s *Session) HideDevice(ctx context.Context, deviceID string) (*Result, error) {
	return s.Call(ctx, EndpointHideDevice, Args{ArgDevice: deviceID})
}

func (s *Session) ShowDevice(ctx context.Context, deviceID string) (*Result, error) {
	return s.Call(ctx, EndpointShowDevice, Args{ArgDevice: deviceID})
}

func (s *Session) DeleteDevice(ctx context.Context, deviceID string) (*Result, error) {
	return s.Call(ctx, EndpointDeleteDevice, Args{ArgDevice: deviceID})
}

func (s *Session) RenameDevice(ctx context.Context, deviceID, name string) (*Result, error) {
	return s.Call(ctx, EndpointEditDevice, Args{ArgDevice: deviceID, ArgName: name})
}

// RedeemDetails changes where payouts are sent. paymentMethod defaults to
// DefaultPaymentMethod.
func (s *Session) RedeemDetails(ctx context.Context, toEmail, paymentMethod string) (*Result, error) {
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}
	return s.Call(ctx, EndpointRedeemDetails, Args{ArgEmail: toEmail, ArgPaymentMethod: paymentMethod})
}

// OnlineStatus returns the online state of every device.
func (s *Session) OnlineStatus(ctx context.Context) (*Result, error) {
	return s.Call(ctx, EndpointDeviceStatuses, nil)
}

// Counters returns timing of the next balance refresh and withdrawal.
func (s *Session) Counters(ctx context.Context) (*Result, error) {
	return s.Call(ctx, EndpointCounters, nil)
}

// Usage returns traffic of every device, deleted ones included, per step.
// An empty step means daily.
func (s *Session) Usage(ctx context.Context, step string) (*Result, error) {
	if step == "" {
		step = TimeframeDaily
	}
	if !ValidTimeframe(step) {
		return nil, ErrInvalidTimeframe
	}
	return s.Call(ctx, EndpointUsage, Args{ArgStep: step})
}
