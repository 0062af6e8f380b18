package router

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

// forwardView is the data behind both forward bodies
type forwardView struct {
	Subject       string
	Sender        string
	Category      string
	Priority      int
	PriorityLabel string
	Sentiment     string
	Language      string
	Summary       string // empty when it adds nothing over the body
	CustomerID    string
	Body          string
	Date          string
}

// replyView is the data behind customer-facing replies
type replyView struct {
	Heading  string
	Greeting string
	Text     string
	Closing  string
	Footer   string
}

var priorityLabels = map[int]string{
	1: "Low",
	2: "Low-Medium",
	3: "Medium",
	4: "Medium-High",
	5: "High",
}

var priorityColors = map[int]string{
	1: "#34a853",
	2: "#8abb6f",
	3: "#fbbc05",
	4: "#ff914d",
	5: "#ea4335",
}

var sentimentColors = map[string]string{
	"Positive":      "#34a853",
	"Neutral":       "#fbbc05",
	"Negative":      "#ff914d",
	"Very Negative": "#ea4335",
}

var forwardText = texttemplate.Must(texttemplate.New("forward").Parse(`Subject: {{.Subject}}

From: {{.Sender}}
{{- if .CustomerID}}

Customer ID: {{.CustomerID}}
{{- end}}

Category: {{.Category}}

Priority: {{.Priority}}/5 ({{.PriorityLabel}})

Sentiment: {{.Sentiment}}

Language: {{.Language}}
{{- if .Summary}}

Summary:
{{.Summary}}
{{- end}}

Message:
{{.Body}}

This email was automatically forwarded by the mail triage service.
`))

var forwardHTML = htmltemplate.Must(htmltemplate.New("forward").Funcs(htmltemplate.FuncMap{
	"priorityColor":  func(p int) string { return priorityColors[p] },
	"sentimentColor": func(s string) string { return sentimentColors[s] },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Forwarded Inquiry</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 650px; margin: 0 auto;">
  <div style="background-color: #4285F4; color: #fff; padding: 16px;">
    <h2 style="margin: 0;">Customer Inquiry</h2>
  </div>
  <div style="padding: 16px; border: 1px solid #ddd;">
    <span style="background-color: #e8f0fe; color: #4285F4; padding: 4px 10px; border-radius: 12px;">{{.Category}}</span>
    <p>
      <strong>From:</strong> {{.Sender}}
      {{- if .CustomerID}} <span style="background-color: #f1f3f4; padding: 2px 6px;">Customer ID: {{.CustomerID}}</span>{{end}}
      <br><a href="mailto:{{.Sender}}">Reply to Customer</a>
    </p>
    <table style="width: 100%; background-color: #f8f9fa; padding: 8px;">
      <tr>
        <td><strong>Priority:</strong> <span style="color: {{priorityColor .Priority}};">{{.Priority}}/5 ({{.PriorityLabel}})</span></td>
        <td><strong>Sentiment:</strong> <span style="color: {{sentimentColor .Sentiment}};">{{.Sentiment}}</span></td>
        <td><strong>Language:</strong> {{.Language}}</td>
      </tr>
    </table>
    <h3>Subject: {{.Subject}}</h3>
    {{- if .Summary}}
    <div style="background-color: #e8f0fe; border-left: 4px solid #4285F4; padding: 10px;"><strong>Summary:</strong> {{.Summary}}</div>
    {{- end}}
    <p>The following message was automatically categorized and forwarded on {{.Date}}.</p>
    <div style="white-space: pre-wrap; background-color: #fafafa; border: 1px solid #eee; padding: 12px;">{{.Body}}</div>
    <p>Please handle this inquiry according to the standard procedures for {{.Category}} issues.</p>
  </div>
  <div style="font-size: 12px; color: #777; padding: 12px;">
    <p>This email was automatically forwarded by the mail triage service.</p>
  </div>
</div>
</body>
</html>
`))

var replyText = texttemplate.Must(texttemplate.New("reply").Parse(`{{.Heading}}

{{.Greeting}}

{{.Text}}

{{.Closing}}
{{- if .Footer}}

{{.Footer}}
{{- end}}
`))

var replyHTML = htmltemplate.Must(htmltemplate.New("reply").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px;">
  <div style="border-bottom: 2px solid #4285F4; padding-bottom: 10px; margin-bottom: 20px;">
    <h2 style="color: #4285F4; margin: 0;">{{.Heading}}</h2>
  </div>
  <p>{{.Greeting}}</p>
  <p style="white-space: pre-wrap;">{{.Text}}</p>
  <p style="margin-top: 30px; white-space: pre-wrap;">{{.Closing}}</p>
  {{- if .Footer}}
  <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; font-size: 12px; color: #777;">
    <p>{{.Footer}}</p>
  </div>
  {{- end}}
</div>
</body>
</html>
`))
