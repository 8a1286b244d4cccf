package site

import "fmt"

// CTA texts used when embedding the opt-in form.
const (
	LandingNewsletterCTA = "Recibe nuevos artículos en tu correo:"
	ArticleNewsletterCTA = "Si te ha gustado este artículo, <br>recibe los próximos por email:"
)

const newsletterArrowSVG = `<svg width="18" height="18" viewBox="0 0 24 24" aria-hidden="true" focusable="false" fill="none" stroke="white" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><path d="M5 12h14M12 5l7 7-7 7"/></svg>`

// EmbedNewsletter renders the inline opt-in form. The hidden "website" input
// is a honeypot; the subscription endpoint drops submissions that fill it.
func (r *Renderer) EmbedNewsletter(ctaText string) string {
	return fmt.Sprintf(`
<section class="newsletter-inline" aria-label="Newsletter">
    <div class="newsletter-wrapper">
        <h2 class="newsletter-cta">%s</h2>
        <form class="newsletter-form" action="#" method="post">
            <div class="newsletter-field">
                <div class="newsletter-row">
                    <input
                        id="newsletter-email"
                        name="email"
                        type="email"
                        placeholder="tu@email.com"
                        class="newsletter-input"
                        autocomplete="email"
                        required
                    />
                    <input
                        type="text"
                        name="website"
                        autocomplete="off"
                        tabindex="-1"
                        aria-hidden="true"
                        style="position:absolute;left:-9999px;top:auto;width:1px;height:1px;overflow:hidden;"
                    />
                    <button class="newsletter-go" type="submit" aria-label="Subscribe">
                        %s
                    </button>
                </div>
                <p class="newsletter-message" aria-live="polite"></p>
                <div
                    class="cf-turnstile"
                    id="newsletter-turnstile"
                    data-sitekey="%s"
                    data-theme="light"
                    data-size="flexible"
                    data-appearance="interaction-only"
                    data-language="es"
                    data-callback="onNewsletterTurnstileSuccess"
                    data-expired-callback="onNewsletterTurnstileExpired"
                    data-timeout-callback="onNewsletterTurnstileTimeout"
                    data-error-callback="onNewsletterTurnstileError"
                ></div>
            </div>
        </form>
    </div>
</section>
`, ctaText, newsletterArrowSVG, r.TurnstileSiteKey)
}
