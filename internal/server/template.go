package server

import (
	"fmt"
	"html/template"
	"sync"
)

// panelTemplate provides the single-page recording control panel.
var panelTemplate = sync.OnceValue(func() *template.Template {
	tmpl := `<!DOCTYPE html>
<html>
<head>
    <title>Screen Recorder</title>
    <style>
        body { font-family: monospace; margin: 20px; max-width: 800px; }
        h1 { font-size: 24px; }
        h2 { font-size: 18px; margin-top: 30px; }
        fieldset { border: 1px solid #ddd; margin-bottom: 12px; padding: 10px; }
        label { display: inline-block; min-width: 140px; }
        input[type=number] { width: 80px; }
        button { padding: 6px 14px; margin-right: 8px; }
        table { border-collapse: collapse; width: 100%; }
        th { text-align: left; border-bottom: 1px solid #ddd; padding: 8px; }
        td { padding: 8px; }
        tr:hover { background-color: #f5f5f5; }
        a { text-decoration: none; color: #0066cc; }
        a:hover { text-decoration: underline; }
        #status { margin: 12px 0; padding: 8px; background: #f5f5f5; }
        .error { color: #cc0000; }
    </style>
</head>
<body>
    <h1>Screen Recorder</h1>

    <fieldset>
        <div><label for="duration">Duration (s)</label><input type="number" id="duration" value="60" min="1"></div>
        <div><label for="fps">FPS</label><input type="number" id="fps" value="30" min="1" max="60"></div>
        <div><label for="shorts">Shorts format</label><input type="checkbox" id="shorts"></div>
        <div><label for="region">Record region</label><input type="checkbox" id="region"></div>
        <div id="region-fields" style="display:none">
            <label for="left">Left</label><input type="number" id="left" value="0" min="0">
            <label for="top">Top</label><input type="number" id="top" value="0" min="0">
            <label for="width">Width</label><input type="number" id="width" value="800" min="1">
            <label for="height">Height</label><input type="number" id="height" value="600" min="1">
        </div>
    </fieldset>

    <button id="start">Start recording</button>
    <button id="stop">Stop recording</button>
    <div id="status">Idle</div>

    <h2>Recordings</h2>
    <table>
        <thead><tr><th>Name</th><th>Size</th><th></th></tr></thead>
        <tbody id="recordings">
            {{range .Recordings}}
            <tr>
                <td><a href="/download/{{.Name}}">{{.Name}}</a></td>
                <td>{{.Size}}</td>
                <td><a href="#" data-delete="{{.Name}}">delete</a></td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <script>
    const statusEl = document.getElementById('status');

    document.getElementById('region').addEventListener('change', e => {
        document.getElementById('region-fields').style.display = e.target.checked ? 'block' : 'none';
    });

    document.getElementById('start').addEventListener('click', async () => {
        const body = {
            duration: parseInt(document.getElementById('duration').value, 10),
            fps: parseInt(document.getElementById('fps').value, 10),
            shorts_format: document.getElementById('shorts').checked,
            region_enabled: document.getElementById('region').checked,
            left: parseInt(document.getElementById('left').value, 10),
            top: parseInt(document.getElementById('top').value, 10),
            width: parseInt(document.getElementById('width').value, 10),
            height: parseInt(document.getElementById('height').value, 10),
        };
        const resp = await fetch('/start_recording', {
            method: 'POST',
            headers: {'Content-Type': 'application/json'},
            body: JSON.stringify(body),
        });
        const data = await resp.json();
        statusEl.textContent = data.message;
    });

    document.getElementById('stop').addEventListener('click', async () => {
        const resp = await fetch('/stop_recording', {method: 'POST'});
        const data = await resp.json();
        statusEl.textContent = data.message;
    });

    document.getElementById('recordings').addEventListener('click', async e => {
        const name = e.target.dataset.delete;
        if (!name) return;
        e.preventDefault();
        const resp = await fetch('/delete/' + encodeURIComponent(name), {method: 'DELETE'});
        const data = await resp.json();
        statusEl.textContent = data.message;
        if (resp.ok) e.target.closest('tr').remove();
    });

    async function poll() {
        try {
            const resp = await fetch('/status');
            const data = await resp.json();
            if (data.recording) {
                statusEl.textContent = 'Recording ' + data.current_file +
                    ' (' + data.frames_written + ' frames)';
            } else if (data.error) {
                statusEl.textContent = 'Last recording failed: ' + data.error;
                statusEl.classList.add('error');
            }
        } catch (err) {
            // server unreachable; keep last status
        }
    }
    setInterval(poll, 2000);
    </script>
</body>
</html>`

	t, err := template.New("panel").Parse(tmpl)
	if err != nil {
		panic(fmt.Sprintf("template parse error: %v", err))
	}
	return t
})
