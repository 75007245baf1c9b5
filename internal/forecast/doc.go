// Package forecast validates and normalizes gridded quintile forecasts
// before they are accepted into the shared forecast archive.
//
// # Submissions
//
// A submission is a probability grid plus five identity fields:
//
//	variable       tas, mslp or pr
//	fc_start_date  YYYYMMDD, e.g. "20241114"
//	period         lead-time selector, supplied as an int, a float or text
//	teamname       opaque, not checked here
//	modelname      opaque, not checked here
//
// Period codes are coerced to text before the membership check: 1, 1.0,
// 1.7 and "1" all become "1" (numeric values truncate towards zero).
//
// # Grid Conventions
//
// The canonical grid has shape (5, 181, 360):
//
//	quintile   labels 0.2, 0.4, 0.6, 0.8, 1.0 (any storage order)
//	latitude   90 to -90 at 1 degree, strictly descending
//	longitude  0 to 359 at 1 degree, strictly ascending
//
// Axes are found by name, first match wins:
//
//	latitude   latitude, lat, latitudes, lat_deg, y
//	longitude  longitude, lon, longitudes, lon_deg, x
//	quintile   quintile, Quintile, q, percentile, Q
//
// An ascending latitude axis is flipped, and a longitude axis holding any
// negative value is read as [-180, 180) and shifted into [0, 360). Both
// corrections move the data with its coordinates and are idempotent.
//
// # Distribution Checks
//
// Every cell must be a probability in [0, 1] or NaN. Along the quintile axis
// the five bins must sum to 1 within 1e-3 at every grid point. A point whose
// bins are all NaN is treated as masked and skipped; a partially NaN point
// fails. Failures are reported in aggregate (count and worst value), not per
// cell.
//
// # Pipeline
//
// [Validator.ValidateAndNormalize] runs metadata checks first and stops at
// the first failure, so a malformed identity never reaches the grid checks.
// The canonical file name is a pure function of the identity:
//
//	tas_20241114_1_ECMWF_modelA.nc                  DefaultRules
//	tas_20241114_p1_ECMWF_modelA.nc                 PeriodRules
//	mslp_20241111_wk3_ECMWF_EXTrange.nc             WeeklyRules
//
// Every rejection is a [*ValidationError] wrapping one of the Err* kinds, so
// callers can branch with errors.Is and render expected-versus-found detail.
package forecast
