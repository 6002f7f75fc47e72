// Package earnapp is a client for the EarnApp dashboard and device-client APIs.
//
// A Session logs in with a long-lived oauth refresh token and then performs
// dashboard calls. Each call carries the session cookies and an xsrf token,
// which the session rotates at most once a minute. Responses are classified
// into a decoded Result or one of the package's sentinel errors:
//
//	session, err := earnapp.NewSession(earnapp.Config{Proxy: "1.2.3.4:8080"})
//	if err != nil {
//		return err
//	}
//	if err := session.Login(ctx, token, earnapp.AuthMethodGoogle); err != nil {
//		return err
//	}
//	money, err := session.Money(ctx)
//	if errors.Is(err, earnapp.ErrRateLimited) {
//		// back off
//	}
//
// DeviceClient speaks the unauthenticated API the installed app uses.
package earnapp
