package gtfs

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"tripsearch.onebusaway.org/internal/network"
)

// feedFiles is a small Santiago feed: route 210 runs both ways, route 506 one
// way, and stop PX is never served.
func feedFiles() map[string]string {
	return map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"RED,Red Metropolitana,https://www.red.cl,America/Santiago\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
			"210,RED,210,Alameda,3\n" +
			"506,RED,506,,3\n",
		"stops.txt": "stop_id,stop_code,stop_name,stop_lat,stop_lon,wheelchair_boarding\n" +
			"PA1,PA1,Plaza Italia,-33.4372,-70.6345,1\n" +
			"PA2,PA2,Santa Lucia,-33.4420,-70.6440,0\n" +
			"PA3,PA3,La Moneda,-33.4440,-70.6540,1\n" +
			"PA4,PA4,Pedro de Valdivia,-33.4250,-70.6100,2\n" +
			"PX,PX,Unserved,-33.5000,-70.7000,1\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20250101,20271231\n",
		"trips.txt": "route_id,service_id,trip_id,trip_headsign,direction_id,wheelchair_accessible\n" +
			"210,WK,210-0-a,La Moneda,0,1\n" +
			"210,WK,210-0-b,Santa Lucia,0,1\n" +
			"210,WK,210-1-a,Plaza Italia,1,2\n" +
			"506,WK,506-0-a,Providencia,0,1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"210-0-a,08:00:00,08:00:00,PA1,1\n" +
			"210-0-a,08:05:00,08:05:00,PA2,2\n" +
			"210-0-a,08:10:00,08:10:00,PA3,3\n" +
			"210-0-b,09:00:00,09:00:00,PA1,1\n" +
			"210-0-b,09:05:00,09:05:00,PA2,2\n" +
			"210-1-a,08:00:00,08:00:00,PA3,1\n" +
			"210-1-a,08:10:00,08:10:00,PA1,2\n" +
			"506-0-a,08:00:00,08:00:00,PA2,1\n" +
			"506-0-a,08:12:00,08:12:00,PA4,2\n",
	}
}

func zipFeed(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeFeed(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "santiago.zip")
	require.NoError(t, os.WriteFile(path, zipFeed(t, files), 0o600))
	return path
}

func lineStartingAt(lines []network.Line, code, stopID string) (network.Line, bool) {
	for _, l := range lines {
		if l.Code == code && len(l.Stops) > 0 && l.Stops[0].StopID == stopID {
			return l, true
		}
	}
	return network.Line{}, false
}

type fakeObserver struct {
	mu     sync.Mutex
	loads  []int
	errors int
}

func (o *fakeObserver) RecordNetworkLoad(stops, lines int, _ time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loads = append(o.loads, lines)
}

func (o *fakeObserver) RecordNetworkReloadError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors++
}

func (o *fakeObserver) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.loads), o.errors
}
