package preview

import (
	"strings"
)

// Diagnostic panel titles written into #root.
const (
	TitleRenderingError = "Rendering Error"
	TitlePreviewError   = "Preview Error"

	// MessageNoEntry is shown when the scripts ran but defined nothing to mount
	// and left #root empty.
	MessageNoEntry = "No App component found. Define a component named App to render it."

	// StatusMessageType tags the messages posted to the host window.
	StatusMessageType = "preview-status"
)

// guardScript runs as a classic script before anything else in <body>. It
// installs window.__preview with the diagnostic writer and the status
// reporter, and a last-resort error listener for failures the mount block's
// try/catch never sees (transpiler syntax errors, async throws).
const guardScript = `<script>
(function () {
  var settled = false;
  function report(status, message) {
    settled = true;
    try {
      window.parent.postMessage({ type: '` + StatusMessageType + `', status: status, message: message || '' }, '*');
    } catch (e) {}
  }
  function mountPoint() {
    var root = document.getElementById('root');
    if (!root) {
      root = document.createElement('div');
      root.id = 'root';
      document.body.appendChild(root);
    }
    return root;
  }
  function showError(title, message) {
    var root = mountPoint();
    root.innerHTML = '';
    var panel = document.createElement('div');
    panel.setAttribute('data-preview-error', '');
    panel.style.cssText = 'font-family:system-ui,sans-serif;margin:16px;padding:16px;border:1px solid #f5c2c7;border-radius:8px;background:#fff5f5;color:#842029;';
    var heading = document.createElement('h3');
    heading.style.margin = '0 0 8px';
    heading.textContent = title;
    var detail = document.createElement('pre');
    detail.style.cssText = 'white-space:pre-wrap;margin:0;font-size:13px;';
    detail.textContent = message;
    panel.appendChild(heading);
    panel.appendChild(detail);
    root.appendChild(panel);
    report('errored', message);
  }
  function messageOf(error) {
    if (error && error.message) { return String(error.message); }
    return String(error);
  }
  window.__preview = { report: report, showError: showError, messageOf: messageOf, settled: function () { return settled; } };
  window.addEventListener('error', function (event) {
    if (!event || event.target !== window) { return; }
    showError('` + TitleRenderingError + `', event.error ? messageOf(event.error) : String(event.message));
  });
  window.addEventListener('unhandledrejection', function (event) {
    showError('` + TitleRenderingError + `', messageOf(event.reason));
  });
})();
</script>
`

// mountBlock wraps the concatenated scripts in one transpiled unit: run
// them, mount the first defined entry candidate at #root, and turn any throw
// into a diagnostic carrying the error's message.
func mountBlock(body string, candidates []string, typescript bool) string {
	presets := "env,react"
	if typescript {
		presets = "env,react,typescript"
	}

	var b strings.Builder
	b.WriteString(`<script type="text/babel" data-presets="`)
	b.WriteString(presets)
	b.WriteString("\">\n")
	b.WriteString("try {\n")
	b.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("  var __entry = ")
	b.WriteString(entryExpression(candidates))
	b.WriteString(";\n")
	b.WriteString(`  var __root = document.getElementById('root');
  if (__entry) {
    if (ReactDOM.createRoot) {
      ReactDOM.createRoot(__root).render(React.createElement(__entry));
    } else {
      ReactDOM.render(React.createElement(__entry), __root);
    }
    window.__preview.report('ready');
  } else if (!__root.hasChildNodes()) {
    window.__preview.showError('` + TitlePreviewError + `', '` + MessageNoEntry + `');
  } else {
    window.__preview.report('ready');
  }
} catch (error) {
  window.__preview.showError('` + TitleRenderingError + `', window.__preview.messageOf(error));
}
</script>
`)
	return b.String()
}

// readyScript reports a plain document with no scripts to mount as ready.
const readyScript = `<script>
window.addEventListener('load', function () {
  if (!window.__preview.settled()) { window.__preview.report('ready'); }
});
</script>
`
