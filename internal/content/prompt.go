// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"fmt"
	"strings"

	"limoseo/internal/models"
)

// promptKeywords is how many service keywords the prompt targets.
const promptKeywords = 5

const systemPrompt = `You are an SEO expert copywriter for a premium limousine and chauffeured transportation company.
Write accurate, locally relevant landing page copy. Never invent prices, phone numbers or addresses.
Answer using the exact section markers requested, each on its own line.`

const sectionTemplate = `Write the page using EXACTLY these sections:

TITLE: <SEO title, max 60 characters, include the service and the location>

META_DESCRIPTION: <155-160 characters, compelling, include the primary keyword and a call to action>

CONTENT:
<1,500-2,000 words of Markdown with ## subheadings covering:
1. Introduction to the service in this location
2. Why choose us
3. Service features and fleet
4. Local knowledge and landmarks
5. Popular routes and destinations
6. Booking process
7. Pricing transparency (no specific prices)
8. Frequently asked questions
9. Call to action>

KEYWORDS: <15-20 comma separated keywords>`

// promptInput is everything a page prompt is built from.
type promptInput struct {
	Service     *models.Service
	Location    *models.Location
	SiteContext string
	Market      string
}

// buildPrompt returns the user prompt for one service/location page.
func buildPrompt(in promptInput) string {
	svc, loc := in.Service, in.Location

	desc := svc.Description
	if svc.LongDescription != "" {
		desc = svc.LongDescription
	}
	keywords := svc.Keywords
	if len(keywords) > promptKeywords {
		keywords = keywords[:promptKeywords]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a service page for %s in %s, %s.\n\n", svc.Name, loc.Name, in.Market)
	fmt.Fprintf(&b, "Service: %s\n", svc.Name)
	fmt.Fprintf(&b, "Location: %s\n", loc.Name)
	fmt.Fprintf(&b, "Service Description: %s\n", desc)
	fmt.Fprintf(&b, "Location Details: %s\n", loc.Description)
	if len(loc.Landmarks) > 0 {
		fmt.Fprintf(&b, "Landmarks: %s\n", strings.Join(loc.Landmarks, ", "))
	}
	fmt.Fprintf(&b, "Website Context: %s\n", in.SiteContext)
	if len(keywords) > 0 {
		fmt.Fprintf(&b, "Target Keywords: %s\n", strings.Join(keywords, ", "))
	}
	b.WriteString("\n")
	b.WriteString(sectionTemplate)
	return b.String()
}

// regenerationPreamble asks the model to vary its approach on a rewrite.
func regenerationPreamble(previousScore float64, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This content was previously generated with a score of %.0f/100. ", previousScore)
	b.WriteString("Please regenerate with improvements focusing on: better keyword integration, " +
		"clearer structure, more engaging content, stronger CTAs, better readability. " +
		"Use a different writing style while maintaining all factual accuracy.\n")
	if feedback = strings.TrimSpace(feedback); feedback != "" {
		fmt.Fprintf(&b, "Reviewer feedback to address: %s\n", feedback)
	}
	b.WriteString("\n")
	return b.String()
}
