package earnapp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	http "github.com/bogdanfinn/fhttp"
)

const (
	// DashboardURL is the base of the dashboard API.
	DashboardURL = "https://earnapp.com/dashboard/api/"
	// DeviceClientURL is the base of the API the EarnApp app itself talks to.
	DeviceClientURL = "https://client.earnapp.com/"

	appID = "earnapp_dashboard"
)

// API identifies which upstream an endpoint belongs to.
type API int

const (
	APIDashboard API = iota
	APIDeviceClient
)

// Args are the caller-supplied values an endpoint is built from.
type Args map[string]string

// Argument names used by the catalog.
const (
	ArgDevice        = "device"
	ArgName          = "name"
	ArgEmail         = "email"
	ArgPaymentMethod = "payment_method"
	ArgStep          = "step"
)

// BodyField maps a JSON body key to the argument that fills it.
type BodyField struct {
	Key string
	Arg string
}

// Endpoint is one upstream operation.
type Endpoint struct {
	Name   string
	API    API
	Method string
	// Path may contain "{arg}" placeholders filled from Args.
	Path string
	XSRF bool
	Body []BodyField
	// Query lists arguments sent as query parameters.
	Query []string
	// RawText endpoints answer with a bare string instead of JSON.
	RawText bool
	// Validate checks argument values before anything is sent.
	Validate func(Args) error
}

// RequestSpec is an endpoint resolved against its arguments.
type RequestSpec struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]string
}

// Dashboard endpoint names.
const (
	EndpointUserData       = "user_data"
	EndpointMoney          = "money"
	EndpointDevices        = "devices"
	EndpointDownloads      = "downloads"
	EndpointPaymentMethods = "payment_methods"
	EndpointTransactions   = "transactions"
	EndpointLinkDevice     = "link_device"
	EndpointHideDevice     = "hide_device"
	EndpointShowDevice     = "show_device"
	EndpointDeleteDevice   = "delete_device"
	EndpointEditDevice     = "edit_device"
	EndpointRedeemDetails  = "redeem_details"
	EndpointDeviceStatuses = "device_statuses"
	EndpointCounters       = "counters"
	EndpointUsage          = "usage"
)

// Device-client endpoint names.
const (
	EndpointAppConfigWin  = "app_config_win"
	EndpointAppConfigNode = "app_config_node"
	EndpointAppConfig     = "app_config"
	EndpointIsPiggybox    = "is_piggybox"
	EndpointNDT7          = "ndt7"
	EndpointInstallDevice = "install_device"
	EndpointBWStats       = "get_bw_stats"
	EndpointIsLinked      = "is_linked"
	EndpointIsIPBlocked   = "is_ip_blocked"
)

var deviceBody = []BodyField{{Key: "uuid", Arg: ArgDevice}}

var catalog = map[string]Endpoint{}

func register(endpoints ...Endpoint) {
	for _, e := range endpoints {
		catalog[e.Name] = e
	}
}

func init() {
	register(
		Endpoint{Name: EndpointUserData, Method: http.MethodGet, Path: "user_data", XSRF: true},
		Endpoint{Name: EndpointMoney, Method: http.MethodGet, Path: "money", XSRF: true},
		Endpoint{Name: EndpointDevices, Method: http.MethodGet, Path: "devices", XSRF: true},
		Endpoint{Name: EndpointDownloads, Method: http.MethodGet, Path: "downloads", XSRF: true},
		Endpoint{Name: EndpointPaymentMethods, Method: http.MethodGet, Path: "payment_methods", XSRF: true},
		Endpoint{Name: EndpointTransactions, Method: http.MethodGet, Path: "transactions", XSRF: true},
		Endpoint{Name: EndpointLinkDevice, Method: http.MethodPost, Path: "link_device", XSRF: true, Body: deviceBody},
		Endpoint{Name: EndpointHideDevice, Method: http.MethodPut, Path: "hide_device", XSRF: true, Body: deviceBody},
		Endpoint{Name: EndpointShowDevice, Method: http.MethodPut, Path: "show_device", XSRF: true, Body: deviceBody},
		Endpoint{Name: EndpointDeleteDevice, Method: http.MethodDelete, Path: "device/{device}", XSRF: true},
		Endpoint{Name: EndpointEditDevice, Method: http.MethodPut, Path: "edit_device/{device}", XSRF: true,
			Body: []BodyField{{Key: "name", Arg: ArgName}}},
		Endpoint{Name: EndpointRedeemDetails, Method: http.MethodPost, Path: "redeem_details", XSRF: true,
			Body: []BodyField{{Key: "to_email", Arg: ArgEmail}, {Key: "payment_method", Arg: ArgPaymentMethod}}},
		Endpoint{Name: EndpointDeviceStatuses, Method: http.MethodGet, Path: "device_statuses", XSRF: true},
		Endpoint{Name: EndpointCounters, Method: http.MethodGet, Path: "counters", XSRF: true},
		Endpoint{Name: EndpointUsage, Method: http.MethodGet, Path: "usage", XSRF: true, Query: []string{ArgStep},
			Validate: validateTimeframe},
	)

	register(
		Endpoint{Name: EndpointAppConfigWin, API: APIDeviceClient, Method: http.MethodPost, Path: "app_config_win.json"},
		Endpoint{Name: EndpointAppConfigNode, API: APIDeviceClient, Method: http.MethodGet, Path: "app_config_node.json"},
		Endpoint{Name: EndpointAppConfig, API: APIDeviceClient, Method: http.MethodGet, Path: "app_config.json"},
		Endpoint{Name: EndpointIsPiggybox, API: APIDeviceClient, Method: http.MethodGet, Path: "is_piggybox"},
		Endpoint{Name: EndpointNDT7, API: APIDeviceClient, Method: http.MethodPost, Path: "ndt7", RawText: true},
		Endpoint{Name: EndpointInstallDevice, API: APIDeviceClient, Method: http.MethodPost, Path: "install_device"},
		Endpoint{Name: EndpointBWStats, API: APIDeviceClient, Method: http.MethodGet, Path: "get_bw_stats"},
		Endpoint{Name: EndpointIsLinked, API: APIDeviceClient, Method: http.MethodGet, Path: "is_linked"},
		Endpoint{Name: EndpointIsIPBlocked, API: APIDeviceClient, Method: http.MethodGet, Path: "is_ip_blocked"},
	)
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (Endpoint, bool) {
	e, ok := catalog[name]
	return e, ok
}

// Endpoints returns the sorted names of every endpoint of api.
func Endpoints(api API) []string {
	var names []string
	for name, e := range catalog {
		if e.API == api {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Build resolves the endpoint against args. Every placeholder, body field and
// query argument must be present.
func (e Endpoint) Build(args Args) (RequestSpec, error) {
	if e.Validate != nil {
		if err := e.Validate(args); err != nil {
			return RequestSpec{}, err
		}
	}

	spec := RequestSpec{Method: e.Method, Query: url.Values{}}

	path := e.Path
	for strings.Contains(path, "{") {
		start := strings.Index(path, "{")
		end := strings.Index(path[start:], "}")
		if end < 0 {
			return RequestSpec{}, fmt.Errorf("%s: unterminated placeholder in %q", e.Name, e.Path)
		}
		arg := path[start+1 : start+end]
		value, ok := args[arg]
		if !ok || value == "" {
			return RequestSpec{}, fmt.Errorf("%s: %w %q", e.Name, ErrMissingArgument, arg)
		}
		path = path[:start] + url.PathEscape(value) + path[start+end+1:]
	}
	spec.Path = path

	if len(e.Body) > 0 {
		spec.Body = make(map[string]string, len(e.Body))
		for _, field := range e.Body {
			value, ok := args[field.Arg]
			if !ok {
				return RequestSpec{}, fmt.Errorf("%s: %w %q", e.Name, ErrMissingArgument, field.Arg)
			}
			spec.Body[field.Key] = value
		}
	}

	for _, arg := range e.Query {
		value, ok := args[arg]
		if !ok {
			return RequestSpec{}, fmt.Errorf("%s: %w %q", e.Name, ErrMissingArgument, arg)
		}
		spec.Query.Set(arg, value)
	}

	return spec, nil
}

// encodeBody returns the JSON body of spec, or nil when it has none.
func (s RequestSpec) encodeBody() ([]byte, error) {
	if s.Body == nil {
		return nil, nil
	}
	return json.Marshal(s.Body)
}

func validateTimeframe(args Args) error {
	if !ValidTimeframe(args[ArgStep]) {
		return ErrInvalidTimeframe
	}
	return nil
}
