package htmlgen

import "html/template"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <script src="{{.ClientURL}}"></script>
    <script src="{{.AuthoringURL}}"></script>
    <style>
        body { margin: 0; font-family: "Segoe UI", sans-serif; }
        #notes { background: #F39C12; color: #fff; padding: 8px 16px; }
        #console { height: 120px; overflow-y: auto; background: #2C3E50; color: #2ECC71; font: 12px monospace; padding: 8px; }
        #reportContainer { height: calc(100vh - 140px); width: 100vw; }
    </style>
</head>
<body>
{{- if .Notes}}
    <div id="notes">
        <ul>
        {{- range .Notes}}
            <li>{{.}}</li>
        {{- end}}
        </ul>
    </div>
{{- end}}
    <div id="reportContainer"></div>
    <div id="console"></div>
    <script>
        const models = window['powerbi-client'].models;
        const config = {
            type: 'report',
            tokenType: models.TokenType[{{.TokenType}}],
            accessToken: {{.Token}},
            embedUrl: {{.EmbedURL}},
{{- if .Create}}
            datasetId: {{.DatasetID}},
{{- else}}
            id: {{.ReportID}},
{{- end}}
            permissions: models.Permissions.All,
            viewMode: models.ViewMode.Edit,
            settings: {
                panes: {
                    filters: { visible: true },
                    pageNavigation: { visible: true }
                }
            }
        };

        const sleep = (ms) => new Promise((resolve) => setTimeout(resolve, ms));

        function log(message, level) {
            const line = document.createElement('div');
            line.textContent = '[' + new Date().toLocaleTimeString() + '] ' + message;
            if (level === 'error') {
                line.style.color = '#E74C3C';
                console.error(message);
            } else {
                console.log(message);
            }
            const el = document.getElementById('console');
            el.appendChild(line);
            el.scrollTop = el.scrollHeight;
        }

        async function step(label, fn) {
            try {
                const result = await fn();
                log(label);
                return result;
            } catch (e) {
                log(label + ': ' + (e && e.message ? e.message : JSON.stringify(e)), 'error');
                return null;
            }
        }

        const container = document.getElementById('reportContainer');
{{- if .Create}}
        const report = powerbi.createReport(container, config);
{{- else}}
        const report = powerbi.embed(container, config);
{{- end}}

        let built = false;
        report.on('loaded', async () => {
            if (built) {
                return;
            }
            built = true;
            log('Report loaded - ready for authoring');

            const pages = await report.getPages();
            const pageNamed = (name) => pages.find((p) => p.name === name) || null;
            let page = pages.find((p) => p.isActive) || pages[0];
{{.Script}}

            log('Build script finished');
        });

        report.on('rendered', () => log('Report rendered'));
        report.on('saved', () => log('Report saved'));
        report.on('error', (e) => log('Error: ' + JSON.stringify(e.detail), 'error'));
    </script>
</body>
</html>
`))
