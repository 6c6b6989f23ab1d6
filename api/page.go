package api

import "net/http"

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(pageHTML))
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>QR Code Generator</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
    background: #f9fafb;
    color: #111827;
    padding: 48px 16px;
  }
  .card {
    background: #fff;
    border-radius: 12px;
    box-shadow: 0 1px 3px rgba(0,0,0,.1);
    padding: 32px;
    max-width: 672px;
    margin: 0 auto;
  }
  h1 { font-size: 24px; font-weight: 700; text-align: center; margin-bottom: 8px; }
  .subtitle { color: #4b5563; text-align: center; margin-bottom: 32px; }
  label { display: block; font-size: 14px; font-weight: 500; color: #374151; margin-bottom: 4px; }
  input[type=text] { width: 100%; padding: 8px 12px; border: 1px solid #d1d5db; border-radius: 6px; }
  .row { display: grid; grid-template-columns: repeat(3, 1fr); gap: 16px; margin: 24px 0; }
  .swatch { display: flex; align-items: center; gap: 8px; font-size: 14px; color: #6b7280; }
  #preview {
    display: flex; align-items: center; justify-content: center;
    margin: 0 auto 24px; padding: 16px; width: fit-content;
    border: 1px solid #e5e7eb; border-radius: 8px;
  }
  #placeholder { display: flex; align-items: center; justify-content: center; color: #9ca3af; font-size: 14px; text-align: center; }
  #error { color: #b91c1c; font-size: 13px; text-align: center; margin-bottom: 16px; }
  .actions { text-align: center; }
  button {
    padding: 8px 16px; background: #4f46e5; color: #fff;
    border: 0; border-radius: 6px; cursor: pointer;
  }
  button:disabled { opacity: .5; cursor: not-allowed; }
</style>
</head>
<body>
<div class="card">
  <h1>QR Code Generator</h1>
  <p class="subtitle">Enter text or URL to generate a QR code</p>

  <label for="text">Text or URL</label>
  <input type="text" id="text" placeholder="Enter text or URL">

  <div class="row">
    <div>
      <label for="size" id="size-label">Size: 200px</label>
      <input type="range" id="size" min="100" max="400">
    </div>
    <div>
      <label for="background">Background Color</label>
      <div class="swatch"><input type="color" id="background"><span id="background-value"></span></div>
    </div>
    <div>
      <label for="foreground">Foreground Color</label>
      <div class="swatch"><input type="color" id="foreground"><span id="foreground-value"></span></div>
    </div>
  </div>

  <div id="preview"></div>
  <div id="error"></div>

  <div class="actions">
    <button id="download" disabled>Download QR Code</button>
  </div>
</div>
<script>
(function() {
  var viewID = null;
  var seq = 0;     // wire order of field changes, checked by the server
  var inputs = 0;  // user inputs seen; only the newest one may repaint
  var queue = Promise.resolve();
  var fields = {
    text: document.getElementById('text'),
    size: document.getElementById('size'),
    background: document.getElementById('background'),
    foreground: document.getElementById('foreground')
  };
  var sizeLabel = document.getElementById('size-label');
  var preview = document.getElementById('preview');
  var errorEl = document.getElementById('error');
  var button = document.getElementById('download');

  function clearChildren(el) {
    while (el.firstChild) el.removeChild(el.firstChild);
  }

  function show(view, syncControls) {
    var cfg = view.config, p = view.preview;
    if (syncControls) {
      fields.text.value = cfg.payload_text;
      fields.size.value = cfg.pixel_size;
      fields.background.value = cfg.background_color.toLowerCase();
      fields.foreground.value = cfg.foreground_color.toLowerCase();
    }
    document.getElementById('background-value').textContent = cfg.background_color;
    document.getElementById('foreground-value').textContent = cfg.foreground_color;
    sizeLabel.textContent = p.label;

    clearChildren(preview);
    if (p.placeholder) {
      var box = document.createElement('div');
      box.id = 'placeholder';
      box.style.width = p.width + 'px';
      box.style.height = p.height + 'px';
      box.textContent = p.message;
      preview.appendChild(box);
    } else if (p.image) {
      var img = document.createElement('img');
      img.setAttribute('alt', 'QR Code');
      img.width = p.width;
      img.height = p.height;
      img.src = p.image;
      preview.appendChild(img);
    }
    errorEl.textContent = p.error || '';
    button.disabled = !p.download_enabled;
  }

  function readJSON(r) {
    return r.json().then(function(body) {
      if (!r.ok) throw new Error(body.error || ('HTTP ' + r.status));
      return body;
    });
  }

  function put(name, value) {
    return fetch('/views/' + viewID + '/' + name, {
      method: 'PUT',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ value: value, seq: ++seq })
    });
  }

  function mount() {
    return fetch('/views', { method: 'POST' })
      .then(readJSON)
      .then(function(view) { viewID = view.id; return view; });
  }

  // remount replaces an expired view and replays what the controls show.
  function remount() {
    return mount().then(function(view) {
      var chain = Promise.resolve(view);
      Object.keys(fields).forEach(function(name) {
        chain = chain.then(function() { return put(name, fields[name].value).then(readJSON); });
      });
      return chain;
    });
  }

  function fail(err) {
    errorEl.textContent = (err && err.message) || 'Connection error';
  }

  // Field changes go out one at a time, in input order.
  function setField(name, value) {
    var mine = ++inputs;
    queue = queue
      .then(function() {
        if (!viewID) return remount();
        return put(name, value).then(function(r) {
          if (r.status === 404) return remount();
          return readJSON(r);
        });
      })
      .then(function(view) {
        if (view && !view.stale && mine === inputs) show(view, false);
      })
      .catch(fail);
  }

  Object.keys(fields).forEach(function(name) {
    fields[name].addEventListener('input', function(e) { setField(name, e.target.value); });
  });

  document.addEventListener('visibilitychange', function() {
    if (document.visibilityState !== 'visible' || !viewID) return;
    queue = queue
      .then(function() {
        return fetch('/views/' + viewID).then(function(r) {
          if (r.status !== 404) return null;
          var mine = inputs;
          return remount().then(function(view) {
            if (mine === inputs) show(view, false);
          });
        });
      })
      .catch(fail);
  });

  button.addEventListener('click', function() {
    if (!viewID || button.disabled) return;
    var anchor = document.createElement('a');
    anchor.href = '/views/' + viewID + '/export';
    anchor.download = 'qr-code.png';
    document.body.appendChild(anchor);
    try {
      anchor.click();
    } finally {
      document.body.removeChild(anchor);
    }
  });

  window.addEventListener('pagehide', function() {
    if (viewID) fetch('/views/' + viewID, { method: 'DELETE', keepalive: true });
  });

  queue = mount()
    .then(function(view) { show(view, true); })
    .catch(fail);
})();
</script>
</body>
</html>`
