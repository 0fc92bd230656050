package notify

import (
	"fmt"
	"strings"
	"time"
)

// escapeMarkdown neutralizes the characters Telegram's Markdown parse mode
// trips over in user-controlled text.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("[", "\\[", "]", "\\]", "_", "\\_")
	return replacer.Replace(s)
}

func formatViewCount(count *int64) string {
	if count == nil || *count == 0 {
		return ""
	}

	switch {
	case *count >= 1_000_000:
		return fmt.Sprintf(" • %.1fM views", float64(*count)/1_000_000)
	case *count >= 1_000:
		return fmt.Sprintf(" • %.1fK views", float64(*count)/1_000)
	default:
		return fmt.Sprintf(" • %d views", *count)
	}
}

// FormatVideoNotification renders the Markdown message body for a new video.
func FormatVideoNotification(msg Message) string {
	var parts []string

	parts = append(parts,
		"*New Video Alert*",
		"",
		fmt.Sprintf("*%s*", escapeMarkdown(msg.Title)),
		fmt.Sprintf("Published: %s UTC%s", msg.PublishedAt.UTC().Format("2006-01-02 15:04"), formatViewCount(msg.ViewCount)),
		"",
	)

	if msg.Summary != nil && *msg.Summary != "" {
		parts = append(parts,
			"📝 *Summary:*",
			*msg.Summary,
			"",
		)
	}

	parts = append(parts,
		fmt.Sprintf("🔗 [Watch Video](%s)", msg.URL),
		"",
		"_Powered by TubeWatch_",
	)

	return strings.Join(parts, "\n")
}

// FormatErrorAlert renders the Markdown body of an operational error alert.
func FormatErrorAlert(channelName, errorType, details string, now time.Time) string {
	return fmt.Sprintf(`*Error Alert*

*Channel:* %s
*Error Type:* %s
*Details:* %s
*Time:* %s

Please check the system logs for more information.`,
		channelName, errorType, details, now.UTC().Format("2006-01-02 15:04 UTC"))
}
