package domain

import "strconv"

// Measurement field keys understood by the analytics SDK.
const (
	FieldAnonymizeIP    = "&aip"
	FieldAppID          = "&aid"
	FieldAppName        = "&an"
	FieldAppVersion     = "&av"
	FieldCampaignName   = "&cn"
	FieldCampaignSource = "&cs"
	FieldCampaignMedium = "&cm"
	FieldClientID       = "&cid"
	FieldCurrencyCode   = "&cu"
	FieldEventAction    = "&ea"
	FieldEventCategory  = "&ec"
	FieldEventLabel     = "&el"
	FieldEventValue     = "&ev"
	FieldExDescription  = "&exd"
	FieldExFatal        = "&exf"
	FieldHitType        = "&t"
	FieldLanguage       = "&ul"
	FieldNonInteraction = "&ni"
	FieldPage           = "&dp"
	FieldReferrer       = "&dr"
	FieldSampleRate     = "&sf"
	FieldScreenName     = "&cd"
	FieldSessionControl = "&sc"
	FieldTimingCategory = "&utc"
	FieldTimingValue    = "&utt"
	FieldTimingVar      = "&utv"
	FieldTitle          = "&dt"
	FieldTrackingID     = "&tid"
	FieldTransactionID  = "&ti"
	FieldTransactionRev = "&tr"
	FieldUseSecure      = "useSecure"
	FieldViewportSize   = "&vp"
	FieldLogLevel       = "logLevel"
	customDimensionStem = "cd"
	customMetricStem    = "cm"
	MaxCustomIndex      = 200
)

// HitType values for FieldHitType.
const (
	HitTypeAppView     = "appview"
	HitTypeEvent       = "event"
	HitTypeException   = "exception"
	HitTypeItem        = "item"
	HitTypeSocial      = "social"
	HitTypeTiming      = "timing"
	HitTypeTransaction = "transaction"
)

// Hit is a flat analytics payload. Values are already stringified.
type Hit map[string]string

// Type returns the hit type, if set.
func (h Hit) Type() string { return h[FieldHitType] }

// Clone returns an independent copy.
func (h Hit) Clone() Hit {
	out := make(Hit, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// EventHit builds an event hit. An empty label and a zero value are sent as-is.
func EventHit(category, action, label string, value int64) Hit {
	return Hit{
		FieldHitType:       HitTypeEvent,
		FieldEventCategory: category,
		FieldEventAction:   action,
		FieldEventLabel:    label,
		FieldEventValue:    strconv.FormatInt(value, 10),
	}
}

// AppViewHit builds a screen view hit.
func AppViewHit(screenName string) Hit {
	return Hit{
		FieldHitType:    HitTypeAppView,
		FieldScreenName: screenName,
	}
}

// ExceptionHit builds an exception hit.
func ExceptionHit(description string, fatal bool) Hit {
	f := "0"
	if fatal {
		f = "1"
	}
	return Hit{
		FieldHitType:       HitTypeException,
		FieldExDescription: description,
		FieldExFatal:       f,
	}
}

// CustomDimensionKey returns the configuration key for custom dimension i.
func CustomDimensionKey(i int) string { return customDimensionStem + strconv.Itoa(i) }

// CustomMetricKey returns the configuration key for custom metric i.
func CustomMetricKey(i int) string { return customMetricStem + strconv.Itoa(i) }
