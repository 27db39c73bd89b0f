package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
	"github.com/sweeney/dcf77-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(s dcf77.State) string {
		switch s {
		case dcf77.StateDecodeAndPublish:
			return "ok"
		case dcf77.StateCollecting:
			return "busy"
		}
		return "idle"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DCF77 Receiver</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.busy { color: #06c; }
.idle { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.bits { font-size: 0.85em; word-break: break-all; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; background: orange; }
.live-dot.on { background: green; }
</style>
</head>
<body>
<h1>DCF77 Receiver<span id="live-dot" class="live-dot" title="pulse"></span></h1>

<h2>Decoder</h2>
<table>
<tr><th>State</th><td id="state" class="{{stateClass .State}}">{{.State}}</td></tr>
<tr><th>Second</th><td id="counter">{{.Counter}}</td></tr>
<tr><th>Synced</th><td>{{if .Synced}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Last Minute</h2>
{{if .Last}}<table>
<tr><th>UTC</th><td id="utc">{{.Last.UTC}}</td></tr>
<tr><th>Broadcast time</th><td id="local">{{.Last.Date}} {{.Last.Time}} {{.Last.Zone}}</td></tr>
<tr><th>Flags</th><td>{{.Last.Flags}}</td></tr>
<tr><th>Bits</th><td class="bits">{{.Last.Bits}}</td></tr>
</table>{{else}}<p id="utc">no minute decoded yet</p>{{end}}

<h2>Counters</h2>
<table>
<tr><th>Pulses accepted</th><td>{{.Stats.PulsesAccepted}}</td></tr>
<tr><th>Pulses rejected</th><td>{{.Stats.PulsesRejected}}</td></tr>
<tr><th>Pulses dropped</th><td>{{.Stats.PulsesDropped}}</td></tr>
<tr><th>Resyncs</th><td>{{.Stats.Resyncs}}</td></tr>
<tr><th>Overruns</th><td>{{.Stats.Overruns}}</td></tr>
<tr><th>Frames decoded</th><td>{{.Stats.FramesDecoded}}</td></tr>
<tr><th>Minutes published</th><td>{{.Stats.MinutesPublished}}</td></tr>
<tr><th>Parity errors (m/h/d)</th><td>{{.Stats.MinuteParityError}} / {{.Stats.HourParityError}} / {{.Stats.DateParityError}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Input</th><td>{{.Config.Chip}} line {{.Config.Pin}}, carrier off {{.Config.CarrierOff}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
<script>
(function() {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("state");
  var counterEl = document.getElementById("counter");
  var utcEl = document.getElementById("utc");

  function connect() {
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.type === "status" && msg.data.status) {
          stateEl.textContent = msg.data.status.state;
          counterEl.textContent = msg.data.status.counter;
          dot.className = msg.data.status.indicator ? "live-dot on" : "live-dot";
        } else if (msg.type === "minute" && msg.data.dcf77) {
          utcEl.textContent = msg.data.dcf77.timestamp;
        }
      } catch (e) {}
    };
    ws.onclose = function() { setTimeout(connect, 5000); };
  }
  connect();
})();
</script>
</body>
</html>
`

type lastView struct {
	UTC   string
	Date  string
	Time  string
	Zone  string
	Flags string
	Bits  string
}

func newLastView(m dcf77.Minute) *lastView {
	f := m.Frame.Fields()
	fl := m.Frame.Flags
	return &lastView{
		UTC:   m.Time.Time().Format(time.RFC3339),
		Date:  fmt.Sprintf("%04d-%02d-%02d", f.Year, f.Month, f.Day),
		Time:  fmt.Sprintf("%02d:%02d", f.Hour, f.Minute),
		Zone:  fl.Zone(),
		Flags: fmt.Sprintf("R=%t A1=%t Z1=%t Z2=%t A2=%t", fl.R, fl.A1, fl.Z1, fl.Z2, fl.A2),
		Bits:  m.Bits.Format(dcf77.FrameSeconds),
	}
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and Synced() methods but the template needs fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Synced bool
		Last   *lastView
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Synced:   snap.Synced(),
	}
	if snap.Synced() {
		data.Last = newLastView(snap.LastMinute)
	}
	indexTmpl.Execute(w, data)
}
