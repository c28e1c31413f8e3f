package handlers

import (
	"encoding/json"
	"encoding/xml"
	"log/slog"
	"net/http"

	"github.com/netlinkvoice/connectai/pkg/bridge/session"
	"github.com/netlinkvoice/connectai/pkg/bridge/telephony"
)

// The dial-plan webhook answers with connect-stream XML pointing the
// carrier at the media websocket, echoing the call parameters back so
// they arrive again in the stream's start event.
type dialParameter struct {
	XMLName xml.Name `xml:"Parameter"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
}

type dialStream struct {
	XMLName    xml.Name `xml:"Stream"`
	Action     string   `xml:"action,attr"`
	URL        string   `xml:"url,attr"`
	Parameters []dialParameter
}

type dialConnect struct {
	XMLName xml.Name `xml:"Connect"`
	Stream  dialStream
}

type dialResponse struct {
	XMLName xml.Name `xml:"Response"`
	Connect dialConnect
}

// CallHandler serves the carrier's inbound-call webhook.
type CallHandler struct {
	Logger *slog.Logger

	// PublicHost is the externally reachable host:port the carrier
	// should dial the media websocket on.
	PublicHost string
}

// echoedParams are forwarded from the webhook query string into the
// stream's start event, in this order.
var echoedParams = []string{
	telephony.ParamTermCallID,
	telephony.ParamCalledNumber,
	telephony.ParamAccountDomain,
	"AccountUser",
	telephony.ParamCallerID,
	telephony.ParamOrigCallID,
}

func (h CallHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	host := h.PublicHost
	if host == "" {
		host = r.Host
	}

	h.Logger.Info("incoming call webhook",
		"tenant_domain", query.Get(telephony.ParamAccountDomain),
		"called", query.Get(telephony.ParamCalledNumber),
		"caller", query.Get(telephony.ParamCallerID),
		"call_id", query.Get(telephony.ParamTermCallID),
	)

	resp := dialResponse{
		Connect: dialConnect{
			Stream: dialStream{
				Action: "/api/v1/end",
				URL:    "wss://" + host + "/stream",
			},
		},
	}
	for _, name := range echoedParams {
		resp.Connect.Stream.Parameters = append(resp.Connect.Stream.Parameters, dialParameter{
			Name:  name,
			Value: query.Get(name),
		})
	}

	body, err := xml.MarshalIndent(resp, "", "    ")
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

// CallEndHandler serves the carrier's call-end webhook. The media stream
// usually ends first; this is a best-effort second signal.
type CallEndHandler struct {
	Registry *session.Registry
	Logger   *slog.Logger
}

func (h CallEndHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	callID := r.URL.Query().Get(telephony.ParamTermCallID)
	if callID != "" {
		if sess := h.Registry.FindByExternalID(callID); sess != nil {
			sess.BeginClose("carrier_end_webhook")
		}
	}
	h.Logger.Info("call end webhook", "call_id", callID)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
