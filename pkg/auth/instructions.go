package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCredentialGuide explains where the token and cookies come from
func ShowCredentialGuide(w io.Writer) {
	line := strings.Repeat("=", 80)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "📚 FOLLOWERS API CREDENTIAL GUIDE")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Active collection calls the mobile followers endpoint directly and needs")
	fmt.Fprintln(w, "the authorization header of a logged-in app session.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "📱 STEP 1: Capture app traffic")
	fmt.Fprintln(w, "   - Route the Instagram app through an intercepting proxy (mitmproxy, Charles, HTTP Toolkit)")
	fmt.Fprintln(w, "   - Open any followers list in the app")
	fmt.Fprintln(w, "   - Find a request to i.instagram.com/api/v1/friendships/<id>/followers/")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔑 STEP 2: Copy these values from that request:")
	fmt.Fprintln(w, "   ┌──────────────────┬──────────────────────────────────────────────┐")
	fmt.Fprintln(w, "   │ Field            │ Where                                        │")
	fmt.Fprintln(w, "   ├──────────────────┼──────────────────────────────────────────────┤")
	fmt.Fprintln(w, "   │ token            │ Authorization header, with or without Bearer │")
	fmt.Fprintln(w, "   │ x-mid            │ Cookie or x-mid header                       │")
	fmt.Fprintln(w, "   │ ig-u-ds-user-id  │ Cookie or ig-u-ds-user-id header             │")
	fmt.Fprintln(w, "   │ ig-u-rur         │ Cookie or ig-u-rur header                    │")
	fmt.Fprintln(w, "   └──────────────────┴──────────────────────────────────────────────┘")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "💡 TIPS:")
	fmt.Fprintln(w, "   • Only the token is required, the cookies make requests look like the app")
	fmt.Fprintln(w, "   • The same values can be given as IGFOLLOWERS_TOKEN, IGFOLLOWERS_COOKIE_X_MID,")
	fmt.Fprintln(w, "     IGFOLLOWERS_COOKIE_DS_USER_ID and IGFOLLOWERS_COOKIE_RUR")
	fmt.Fprintln(w, "   • A run that aborts on an auth failure means the token must be replaced")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "⚠️  SECURITY WARNING:")
	fmt.Fprintln(w, "   • The token gives full access to the account. Never share it.")
	fmt.Fprintln(w, "   • Stored credentials are kept in the system keychain or an encrypted file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
}

// ShowQuickGuide shows a condensed version for experienced users
func ShowQuickGuide(w io.Writer) {
	fmt.Fprintln(w, "\n🔑 Quick Guide: proxy the app → open a followers list → copy Authorization, x-mid, ig-u-ds-user-id, ig-u-rur")
	fmt.Fprintln(w, "   Type 'help' for detailed instructions")
}
